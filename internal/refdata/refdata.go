// Package refdata loads a kitchen's reference data from YAML: sites, meal
// periods, ingredients, recipes, menus, stock on hand and service history.
package refdata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/galleyops/galley/internal/models"
	"github.com/galleyops/galley/internal/units"
	"github.com/galleyops/galley/internal/util"
)

// File is the on-disk layout.
type File struct {
	Sites       []SiteDoc       `yaml:"sites"`
	Ingredients []IngredientDoc `yaml:"ingredients"`
	Conversions []ConversionDoc `yaml:"unit_conversions"`
	Recipes     []RecipeDoc     `yaml:"recipes"`
	CycleMenus  []CycleMenuDoc  `yaml:"cycle_menus"`
	Overrides   []OverrideDoc   `yaml:"overrides"`
	Lots        []LotDoc        `yaml:"lots"`
	History     HistoryDoc      `yaml:"history"`
}

type SiteDoc struct {
	ID          string          `yaml:"id"`
	Code        string          `yaml:"code"`
	Name        string          `yaml:"name"`
	Timezone    string          `yaml:"timezone"`
	MealPeriods []MealPeriodDoc `yaml:"meal_periods"`
	Equipment   []EquipmentDoc  `yaml:"equipment"`
	Employees   []EmployeeDoc   `yaml:"employees"`
}

type MealPeriodDoc struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	ServiceStart string `yaml:"service_start"`
	ServiceEnd   string `yaml:"service_end"`
	SortOrder    int    `yaml:"sort_order"`
}

type EquipmentDoc struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

type EmployeeDoc struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Stations   []string `yaml:"stations"`
	ShiftStart string   `yaml:"shift_start"`
	ShiftEnd   string   `yaml:"shift_end"`
}

type IngredientDoc struct {
	ID                    string  `yaml:"id"`
	Name                  string  `yaml:"name"`
	Unit                  string  `yaml:"unit"`
	UnitCost              string  `yaml:"unit_cost"`
	Seasoning             bool    `yaml:"seasoning"`
	Storage               string  `yaml:"storage"`
	ParLevel              float64 `yaml:"par_level"`
	ReorderPoint          float64 `yaml:"reorder_point"`
	LeadTimeDays          int     `yaml:"lead_time_days"`
	DeliveryFrequencyDays int     `yaml:"delivery_frequency_days"`
	OrderingCost          string  `yaml:"ordering_cost"`
	HoldingCostPercent    float64 `yaml:"holding_cost_percent"`
	PackSize              float64 `yaml:"pack_size"`
	Vendor                string  `yaml:"vendor"`
}

type ConversionDoc struct {
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
	Factor float64 `yaml:"factor"`
}

type RecipeDoc struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Category    string          `yaml:"category"`
	Yield       float64         `yaml:"yield"`
	YieldUnit   string          `yaml:"yield_unit"`
	PrepMinutes int             `yaml:"prep_minutes"`
	CookMinutes int             `yaml:"cook_minutes"`
	Station     string          `yaml:"station"`
	Equipment   []string        `yaml:"equipment"`
	Components  []string        `yaml:"components"`
	Ingredients []RecipeLineDoc `yaml:"ingredients"`
}

type RecipeLineDoc struct {
	Ingredient string  `yaml:"ingredient"`
	Quantity   float64 `yaml:"quantity"`
	Unit       string  `yaml:"unit"`
	Seasoning  bool    `yaml:"seasoning"`
}

type CycleMenuDoc struct {
	ID          string        `yaml:"id"`
	Site        string        `yaml:"site"`
	Name        string        `yaml:"name"`
	StartDate   string        `yaml:"start_date"`
	LengthWeeks int           `yaml:"length_weeks"`
	Status      string        `yaml:"status"`
	Version     int           `yaml:"version"`
	Items       []MenuItemDoc `yaml:"items"`
}

type MenuItemDoc struct {
	ID         string `yaml:"id"`
	Week       int    `yaml:"week"`
	Day        string `yaml:"day"`
	MealPeriod string `yaml:"meal_period"`
	Recipe     string `yaml:"recipe"`
	Category   string `yaml:"category"`
	Sort       int    `yaml:"sort"`
}

type OverrideDoc struct {
	ID         string        `yaml:"id"`
	Site       string        `yaml:"site"`
	Name       string        `yaml:"name"`
	Date       string        `yaml:"date"`
	Scope      string        `yaml:"scope"`
	MealPeriod string        `yaml:"meal_period"`
	Mode       string        `yaml:"mode"`
	Items      []MenuItemDoc `yaml:"items"`
}

type LotDoc struct {
	ID         string  `yaml:"id"`
	Ingredient string  `yaml:"ingredient"`
	Site       string  `yaml:"site"`
	Quantity   float64 `yaml:"quantity"`
	Unit       string  `yaml:"unit"`
	UnitCost   string  `yaml:"unit_cost"`
	Received   string  `yaml:"received"`
	Expires    string  `yaml:"expires"`
}

type HistoryDoc struct {
	Census     []CensusDoc    `yaml:"census"`
	Selections []SelectionDoc `yaml:"selections"`
	Usage      []UsageDoc     `yaml:"usage"`
}

type CensusDoc struct {
	Date       string `yaml:"date"`
	Site       string `yaml:"site"`
	MealPeriod string `yaml:"meal_period"`
	Count      int    `yaml:"count"`
}

type SelectionDoc struct {
	Date       string `yaml:"date"`
	Site       string `yaml:"site"`
	MealPeriod string `yaml:"meal_period"`
	Recipe     string `yaml:"recipe"`
	Selected   int    `yaml:"selected"`
	Census     int    `yaml:"census"`
}

type UsageDoc struct {
	Date       string  `yaml:"date"`
	Site       string  `yaml:"site"`
	Ingredient string  `yaml:"ingredient"`
	Quantity   float64 `yaml:"quantity"`
}

// Conversion is an ingredient-independent unit edge, e.g. 1 case = 24 each.
type Conversion struct {
	From   string
	To     string
	Factor float64
}

// Dataset is reference data converted to domain models.
type Dataset struct {
	Sites       []models.Site
	MealPeriods []models.MealPeriod
	Equipment   []models.Equipment
	Employees   []models.Employee
	Ingredients []models.Ingredient
	Conversions []Conversion
	Recipes     []models.Recipe
	CycleMenus  []models.CycleMenu
	Overrides   []models.SingleUseMenu
	Lots        []models.InventoryLot
	Census      []models.CensusObservation
	Selections  []models.SelectionObservation
	Usage       []models.UsageObservation
}

// DeliveryFile is the layout of a goods-received file.
type DeliveryFile struct {
	Deliveries []LotDoc `yaml:"deliveries"`
}

// SiteIDs lists the dataset's sites in file order.
func (d *Dataset) SiteIDs() []string {
	ids := make([]string, 0, len(d.Sites))
	for _, s := range d.Sites {
		ids = append(ids, s.ID)
	}
	return ids
}

// Register adds the dataset's unit conversions to conv.
func (d *Dataset) Register(conv *units.Converter) error {
	for _, c := range d.Conversions {
		if err := conv.Register(c.From, c.To, c.Factor); err != nil {
			return fmt.Errorf("registering %s->%s: %w", c.From, c.To, err)
		}
	}
	return nil
}

// LoadFile reads and converts a reference-data file.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening reference data: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes YAML from r and converts it. Unknown keys are rejected.
func Load(r io.Reader) (*Dataset, error) {
	var doc File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding reference data: %w", err)
	}
	return doc.Dataset()
}

// LoadDeliveriesFile reads a goods-received file.
func LoadDeliveriesFile(path string) ([]models.InventoryLot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening deliveries: %w", err)
	}
	defer f.Close()
	return LoadDeliveries(f)
}

// LoadDeliveries decodes received lots. Ingredients and sites are checked by
// the store on insert; here only the shape of each line is. A delivery
// without an id becomes a new lot, one with an id tops up that lot.
func LoadDeliveries(r io.Reader) ([]models.InventoryLot, error) {
	var doc DeliveryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding deliveries: %w", err)
	}

	c := &converter{ds: &Dataset{}}
	lots := make([]models.InventoryLot, 0, len(doc.Deliveries))
	for i, d := range doc.Deliveries {
		what := fmt.Sprintf("delivery %d (%s)", i+1, d.Ingredient)
		if d.Ingredient == "" || d.Site == "" {
			c.errf("%s: ingredient and site are required", what)
		}
		if d.Quantity <= 0 {
			c.errf("%s: quantity must be positive", what)
		}
		lot := models.InventoryLot{
			ID:           d.ID,
			IngredientID: d.Ingredient,
			SiteID:       d.Site,
			Quantity:     d.Quantity,
			Unit:         units.Normalize(d.Unit),
			UnitCost:     c.money(what+" unit cost", d.UnitCost),
		}
		if d.Received != "" {
			lot.ReceivedDate = c.date(what+" received", d.Received)
		}
		if d.Expires != "" {
			exp := c.date(what+" expires", d.Expires)
			lot.ExpirationDate = &exp
		}
		lots = append(lots, lot)
	}
	if err := errors.Join(c.errs...); err != nil {
		return nil, err
	}
	return lots, nil
}

// Dataset converts the document, checking that every reference resolves.
// All problems are reported together.
func (doc *File) Dataset() (*Dataset, error) {
	c := &converter{
		ds:          &Dataset{},
		sites:       make(map[string]bool),
		periods:     make(map[string]bool),
		ingredients: make(map[string]bool),
		recipes:     make(map[string]bool),
	}

	c.convertSites(doc.Sites)
	c.convertIngredients(doc.Ingredients)
	for _, cv := range doc.Conversions {
		if cv.Factor <= 0 {
			c.errf("unit conversion %s->%s: factor must be positive", cv.From, cv.To)
			continue
		}
		c.ds.Conversions = append(c.ds.Conversions, Conversion{From: cv.From, To: cv.To, Factor: cv.Factor})
	}
	c.convertRecipes(doc.Recipes)
	c.convertCycleMenus(doc.CycleMenus)
	c.convertOverrides(doc.Overrides)
	c.convertLots(doc.Lots)
	c.convertHistory(doc.History)

	if err := errors.Join(c.errs...); err != nil {
		return nil, err
	}
	return c.ds, nil
}

type converter struct {
	ds   *Dataset
	errs []error

	sites       map[string]bool
	periods     map[string]bool // siteID/mealPeriodID
	ingredients map[string]bool
	recipes     map[string]bool
}

func (c *converter) errf(format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf(format, args...))
}

func (c *converter) date(what, s string) time.Time {
	d, err := util.ParseDate(s)
	if err != nil {
		c.errf("%s: %w", what, err)
	}
	return d
}

func (c *converter) money(what, s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		c.errf("%s: invalid amount %q", what, s)
		return decimal.Zero
	}
	return d
}

func (c *converter) timeOfDay(what, s string) {
	if s == "" {
		return
	}
	if _, err := util.ParseTimeOfDay(s); err != nil {
		c.errf("%s: %w", what, err)
	}
}

func (c *converter) checkPeriod(what, siteID, mealPeriodID string) {
	if mealPeriodID == "" {
		return
	}
	if siteID == "" {
		for key := range c.periods {
			if strings.HasSuffix(key, "/"+mealPeriodID) {
				return
			}
		}
	} else if c.periods[siteID+"/"+mealPeriodID] {
		return
	}
	c.errf("%s: unknown meal period %q", what, mealPeriodID)
}

func (c *converter) convertSites(docs []SiteDoc) {
	for _, s := range docs {
		if s.ID == "" {
			c.errf("site %q: missing id", s.Name)
			continue
		}
		if c.sites[s.ID] {
			c.errf("site %s: duplicate id", s.ID)
			continue
		}
		c.sites[s.ID] = true
		c.ds.Sites = append(c.ds.Sites, models.Site{ID: s.ID, Code: s.Code, Name: s.Name, Timezone: s.Timezone})

		for _, mp := range s.MealPeriods {
			what := fmt.Sprintf("site %s meal period %s", s.ID, mp.ID)
			if _, err := util.ParseTimeOfDay(mp.ServiceStart); err != nil {
				c.errf("%s: service start: %w", what, err)
			}
			c.timeOfDay(what+" service end", mp.ServiceEnd)
			c.periods[s.ID+"/"+mp.ID] = true
			c.ds.MealPeriods = append(c.ds.MealPeriods, models.MealPeriod{
				ID: mp.ID, SiteID: s.ID, Name: mp.Name,
				ServiceStart: mp.ServiceStart, ServiceEnd: mp.ServiceEnd, SortOrder: mp.SortOrder,
			})
		}
		for _, e := range s.Equipment {
			c.ds.Equipment = append(c.ds.Equipment, models.Equipment{ID: e.ID, SiteID: s.ID, Type: e.Type, Name: e.Name})
		}
		for _, e := range s.Employees {
			what := fmt.Sprintf("site %s employee %s", s.ID, e.ID)
			c.timeOfDay(what+" shift start", e.ShiftStart)
			c.timeOfDay(what+" shift end", e.ShiftEnd)
			c.ds.Employees = append(c.ds.Employees, models.Employee{
				ID: e.ID, SiteID: s.ID, Name: e.Name, StationIDs: e.Stations,
				ShiftStart: e.ShiftStart, ShiftEnd: e.ShiftEnd,
			})
		}
	}
}

func (c *converter) convertIngredients(docs []IngredientDoc) {
	for _, d := range docs {
		what := "ingredient " + d.ID
		if d.ID == "" {
			c.errf("ingredient %q: missing id", d.Name)
			continue
		}
		if c.ingredients[d.ID] {
			c.errf("%s: duplicate id", what)
			continue
		}
		c.ingredients[d.ID] = true

		storage := models.StorageType(strings.ToUpper(d.Storage))
		switch storage {
		case "", models.StorageDry, models.StorageCooler, models.StorageFreezer:
		default:
			c.errf("%s: unknown storage %q", what, d.Storage)
		}
		c.ds.Ingredients = append(c.ds.Ingredients, models.Ingredient{
			ID:                    d.ID,
			Name:                  d.Name,
			Unit:                  units.Normalize(d.Unit),
			UnitCost:              c.money(what+" unit cost", d.UnitCost),
			IsSeasoning:           d.Seasoning,
			StorageType:           storage,
			ParLevel:              d.ParLevel,
			ReorderPoint:          d.ReorderPoint,
			LeadTimeDays:          d.LeadTimeDays,
			DeliveryFrequencyDays: d.DeliveryFrequencyDays,
			OrderingCost:          c.money(what+" ordering cost", d.OrderingCost),
			HoldingCostPercent:    d.HoldingCostPercent,
			PackSize:              d.PackSize,
			VendorID:              d.Vendor,
		})
	}
}

func (c *converter) convertRecipes(docs []RecipeDoc) {
	for _, d := range docs {
		if d.ID != "" {
			c.recipes[d.ID] = true
		}
	}
	for _, d := range docs {
		what := "recipe " + d.ID
		if d.ID == "" {
			c.errf("recipe %q: missing id", d.Name)
			continue
		}
		if d.Yield <= 0 {
			c.errf("%s: yield must be positive", what)
		}
		for _, comp := range d.Components {
			if !c.recipes[comp] {
				c.errf("%s: unknown component %q", what, comp)
			}
		}
		r := models.Recipe{
			ID:              d.ID,
			Name:            d.Name,
			Category:        d.Category,
			YieldQuantity:   d.Yield,
			YieldUnit:       d.YieldUnit,
			PrepTimeMinutes: d.PrepMinutes,
			CookTimeMinutes: d.CookMinutes,
			EquipmentTypes:  d.Equipment,
			StationID:       d.Station,
			Components:      d.Components,
		}
		for _, line := range d.Ingredients {
			if !c.ingredients[line.Ingredient] {
				c.errf("%s: unknown ingredient %q", what, line.Ingredient)
			}
			r.Ingredients = append(r.Ingredients, models.RecipeIngredient{
				IngredientID: line.Ingredient,
				Name:         line.Ingredient,
				Quantity:     line.Quantity,
				Unit:         units.Normalize(line.Unit),
				IsSeasoning:  line.Seasoning,
			})
		}
		c.ds.Recipes = append(c.ds.Recipes, r)
	}
}

func (c *converter) convertCycleMenus(docs []CycleMenuDoc) {
	for _, d := range docs {
		what := "cycle menu " + d.ID
		if !c.sites[d.Site] {
			c.errf("%s: unknown site %q", what, d.Site)
		}
		if d.LengthWeeks <= 0 {
			c.errf("%s: length_weeks must be positive", what)
		}
		status := models.CycleMenuStatus(strings.ToUpper(d.Status))
		switch status {
		case "":
			status = models.CycleMenuStatusDraft
		case models.CycleMenuStatusDraft, models.CycleMenuStatusActive, models.CycleMenuStatusArchived:
		default:
			c.errf("%s: unknown status %q", what, d.Status)
		}
		version := d.Version
		if version == 0 {
			version = 1
		}

		cm := models.CycleMenu{
			ID:          d.ID,
			SiteID:      d.Site,
			Name:        d.Name,
			StartDate:   c.date(what+" start date", d.StartDate),
			LengthWeeks: d.LengthWeeks,
			Status:      status,
			Version:     version,
		}
		for _, it := range d.Items {
			day, err := ParseWeekday(it.Day)
			if err != nil {
				c.errf("%s: %w", what, err)
			}
			if it.Week < 1 || (d.LengthWeeks > 0 && it.Week > d.LengthWeeks) {
				c.errf("%s: week %d outside 1..%d", what, it.Week, d.LengthWeeks)
			}
			c.checkPeriod(what, d.Site, it.MealPeriod)
			if !c.recipes[it.Recipe] {
				c.errf("%s: unknown recipe %q", what, it.Recipe)
			}
			id := it.ID
			if id == "" {
				id = util.DeterministicID(d.ID, strconv.Itoa(it.Week), day.String(), it.MealPeriod, it.Recipe)
			}
			cm.Items = append(cm.Items, models.MenuItem{
				ID: id, WeekNumber: it.Week, DayOfWeek: day, MealPeriodID: it.MealPeriod,
				RecipeID: it.Recipe, Category: it.Category, SortOrder: it.Sort,
			})
		}
		c.ds.CycleMenus = append(c.ds.CycleMenus, cm)
	}
}

func (c *converter) convertOverrides(docs []OverrideDoc) {
	for _, d := range docs {
		what := "override " + d.ID
		if d.Site != "" && !c.sites[d.Site] {
			c.errf("%s: unknown site %q", what, d.Site)
		}
		o := models.SingleUseMenu{
			ID:           d.ID,
			SiteID:       d.Site,
			Name:         d.Name,
			ServiceDate:  c.date(what+" date", d.Date),
			Scope:        models.OverrideScope(strings.ToUpper(d.Scope)),
			MealPeriodID: d.MealPeriod,
			Mode:         models.OverrideMode(strings.ToUpper(d.Mode)),
		}
		c.checkPeriod(what, d.Site, d.MealPeriod)
		for i, it := range d.Items {
			if !c.recipes[it.Recipe] {
				c.errf("%s: unknown recipe %q", what, it.Recipe)
			}
			c.checkPeriod(what, d.Site, it.MealPeriod)
			id := it.ID
			if id == "" {
				id = util.DeterministicID(d.ID, strconv.Itoa(i), it.Recipe)
			}
			o.Items = append(o.Items, models.SingleUseItem{
				ID: id, MealPeriodID: it.MealPeriod, RecipeID: it.Recipe,
				Category: it.Category, SortOrder: it.Sort,
			})
		}
		if err := o.Validate(); err != nil {
			c.errf("%s: %w", what, err)
		}
		c.ds.Overrides = append(c.ds.Overrides, o)
	}
}

func (c *converter) convertLots(docs []LotDoc) {
	for i, d := range docs {
		what := fmt.Sprintf("lot %d (%s)", i+1, d.ID)
		if !c.ingredients[d.Ingredient] {
			c.errf("%s: unknown ingredient %q", what, d.Ingredient)
		}
		if !c.sites[d.Site] {
			c.errf("%s: unknown site %q", what, d.Site)
		}
		if d.Quantity < 0 {
			c.errf("%s: negative quantity", what)
		}
		id := d.ID
		if id == "" {
			id = util.DeterministicID("lot", d.Ingredient, d.Site, d.Received, strconv.Itoa(i))
		}
		lot := models.InventoryLot{
			ID:           id,
			IngredientID: d.Ingredient,
			SiteID:       d.Site,
			Quantity:     d.Quantity,
			Unit:         units.Normalize(d.Unit),
			UnitCost:     c.money(what+" unit cost", d.UnitCost),
			ReceivedDate: c.date(what+" received", d.Received),
		}
		if d.Expires != "" {
			exp := c.date(what+" expires", d.Expires)
			lot.ExpirationDate = &exp
		}
		c.ds.Lots = append(c.ds.Lots, lot)
	}
}

func (c *converter) convertHistory(h HistoryDoc) {
	for _, d := range h.Census {
		c.checkPeriod("census "+d.Date, d.Site, d.MealPeriod)
		c.ds.Census = append(c.ds.Census, models.CensusObservation{
			Date: c.date("census", d.Date), SiteID: d.Site, MealPeriodID: d.MealPeriod, Count: d.Count,
		})
	}
	for _, d := range h.Selections {
		if !c.recipes[d.Recipe] {
			c.errf("selection %s: unknown recipe %q", d.Date, d.Recipe)
		}
		c.ds.Selections = append(c.ds.Selections, models.SelectionObservation{
			Date: c.date("selection", d.Date), SiteID: d.Site, MealPeriodID: d.MealPeriod,
			RecipeID: d.Recipe, Selected: d.Selected, Census: d.Census,
		})
	}
	for _, d := range h.Usage {
		if !c.ingredients[d.Ingredient] {
			c.errf("usage %s: unknown ingredient %q", d.Date, d.Ingredient)
		}
		c.ds.Usage = append(c.ds.Usage, models.UsageObservation{
			Date: c.date("usage", d.Date), SiteID: d.Site, IngredientID: d.Ingredient, Quantity: d.Quantity,
		})
	}
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
