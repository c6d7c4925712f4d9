package bootstrap

import (
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/erazemk/ossms/internal/model"
)

//go:embed seed.yaml
var sampleYAML []byte

// Fixture is a declarative sample data set.
type Fixture struct {
	// Markers are supply names whose presence means the fixture was already
	// applied.
	Markers        []string          `yaml:"markers"`
	UserPassword   string            `yaml:"user_password"`
	Users          []FixtureUser     `yaml:"users"`
	Supplies       []FixtureSupply   `yaml:"supplies"`
	OpeningDaysAgo int               `yaml:"opening_days_ago"`
	Movements      []FixtureMovement `yaml:"movements"`
}

type FixtureUser struct {
	Username  string `yaml:"username"`
	Firstname string `yaml:"firstname"`
	Lastname  string `yaml:"lastname"`
	Email     string `yaml:"email"`
	Role      string `yaml:"role"`
}

type FixtureSupply struct {
	Name            string `yaml:"name"`
	Description     string `yaml:"description"`
	Category        string `yaml:"category"`
	Subcategory     string `yaml:"subcategory"`
	Quantity        int    `yaml:"quantity"`
	Unit            string `yaml:"unit"`
	MinQuantity     int    `yaml:"min_quantity"`
	Location        string `yaml:"location"`
	SupplierName    string `yaml:"supplier_name"`
	SupplierContact string `yaml:"supplier_contact"`
	SupplierNotes   string `yaml:"supplier_notes"`
	Cost            string `yaml:"cost"`
}

// FixtureMovement is a backdated stock adjustment. A negative delta removes
// stock.
type FixtureMovement struct {
	Supply  string `yaml:"supply"`
	Delta   int    `yaml:"delta"`
	Notes   string `yaml:"notes"`
	DaysAgo int    `yaml:"days_ago"`
	User    string `yaml:"user"`
}

// SampleFixture parses the embedded sample data set.
func SampleFixture() (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(sampleYAML, &f); err != nil {
		return nil, fmt.Errorf("parsing sample data: %w", err)
	}
	return &f, nil
}

func (fs FixtureSupply) supply() (*model.Supply, error) {
	s := &model.Supply{
		Name:            fs.Name,
		Description:     fs.Description,
		Category:        fs.Category,
		Subcategory:     fs.Subcategory,
		Quantity:        fs.Quantity,
		Unit:            fs.Unit,
		MinQuantity:     fs.MinQuantity,
		Location:        fs.Location,
		SupplierName:    fs.SupplierName,
		SupplierContact: fs.SupplierContact,
		SupplierNotes:   fs.SupplierNotes,
		PiecesPerBulk:   model.DefaultPiecesPerBulk(fs.Unit),
	}
	if fs.Cost != "" {
		cost, err := decimal.NewFromString(fs.Cost)
		if err != nil {
			return nil, fmt.Errorf("sample supply %q: invalid cost: %w", fs.Name, err)
		}
		s.Cost = decimal.NewNullDecimal(cost)
	}
	return s, nil
}
