package models

// Restaurant is a catalog entry. Offers are equally weighted.
type Restaurant struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Offers      []string `yaml:"offers" json:"offers"`
}
