package portal

import (
	"fmt"
	"sort"
	"strings"
)

// Locator strategies, named as in the WebDriver protocol
const (
	ByID              = "id"
	ByName            = "name"
	ByXPath           = "xpath"
	ByLinkText        = "link text"
	ByPartialLinkText = "partial link text"
	ByCSSSelector     = "css selector"
)

// Logical element names used by the login and loans flow
const (
	LoginTrigger = "login_trigger"
	Username     = "username"
	Password     = "password"
	Submit       = "submit"
	AccountLink  = "account_link"
	LoansLink    = "loans_link"
	LoanRows     = "loan_rows"
)

// DefaultURL is the portal's entry page
const DefaultURL = "https://www.voebb.de/aDISWeb/app?service=direct/0/Home/$DirectLink&sp=SPROD00"

// LoggedInLabel is the value attribute of the login trigger once logged in
const LoggedInLabel = "Abmelden"

// Locator finds one element on a page
type Locator struct {
	By    string `mapstructure:"by" json:"by"`
	Value string `mapstructure:"value" json:"value"`
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.By, l.Value)
}

// Locators maps logical element names to locators
type Locators map[string]Locator

// DefaultLocators returns the locators matching the current portal markup
func DefaultLocators() Locators {
	return Locators{
		LoginTrigger: {By: ByName, Value: "SUO1_AUTHFU_1"},
		// Attribute selectors, "#L#AUSW" would read as two ids
		Username:    {By: ByCSSSelector, Value: `[id="L#AUSW"]`},
		Password:    {By: ByCSSSelector, Value: `[id="LPASSW"]`},
		Submit:      {By: ByName, Value: "LLOGIN"},
		AccountLink: {By: ByXPath, Value: "//a[@title='Mein Konto']"},
		// Partial match, the link label carries the number of loans
		LoansLink: {By: ByPartialLinkText, Value: "Ausleihen"},
		LoanRows:  {By: ByCSSSelector, Value: "#resptable-1 > tbody > tr"},
	}
}

// With returns a copy of l where every locator in overrides replaces the default
func (l Locators) With(overrides Locators) Locators {
	merged := make(Locators, len(l))
	for name, loc := range l {
		merged[name] = loc
	}
	for name, loc := range overrides {
		merged[strings.ToLower(name)] = loc
	}
	return merged
}

// Validate checks that every element of the flow has a usable locator
func (l Locators) Validate() error {
	var missing []string
	for _, name := range []string{LoginTrigger, Username, Password, Submit, AccountLink, LoansLink, LoanRows} {
		loc, ok := l[name]
		if !ok || loc.By == "" || loc.Value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing locators: %s", strings.Join(missing, ", "))
	}

	// Rows are matched against the page source, not through the session
	if l[LoanRows].By != ByCSSSelector {
		return fmt.Errorf("locator %s must use %q, got %q", LoanRows, ByCSSSelector, l[LoanRows].By)
	}
	return nil
}

// Columns holds the 1-indexed cell positions of the loans table
type Columns struct {
	ReturnDate int `mapstructure:"return_date" json:"return_date"`
	Library    int `mapstructure:"library" json:"library"`
	Title      int `mapstructure:"title" json:"title"`
	Extension  int `mapstructure:"extension" json:"extension"`
}

// DefaultColumns returns the column layout of the current loans table
func DefaultColumns() Columns {
	return Columns{
		ReturnDate: 2,
		Library:    3,
		Title:      4,
		Extension:  5,
	}
}

// Validate checks that all positions are 1-indexed
func (c Columns) Validate() error {
	for name, pos := range map[string]int{
		"return_date": c.ReturnDate,
		"library":     c.Library,
		"title":       c.Title,
		"extension":   c.Extension,
	} {
		if pos < 1 {
			return fmt.Errorf("column %s must be >= 1, got %d", name, pos)
		}
	}
	return nil
}

func (c Columns) max() int {
	m := c.ReturnDate
	for _, pos := range []int{c.Library, c.Title, c.Extension} {
		if pos > m {
			m = pos
		}
	}
	return m
}
