package curriculum

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog/default.yaml
var defaultCatalogYAML []byte

// Entry is one authored (subject, topic, 1-10 difficulty) triple.
type Entry struct {
	Subject    string `yaml:"subject" json:"subject"`
	Topic      string `yaml:"topic" json:"topic"`
	Difficulty int    `yaml:"difficulty" json:"difficulty"`
}

// Key is the stable topic identifier, "Subject-Topic".
func (e Entry) Key() string {
	subject := strings.TrimSpace(e.Subject)
	topic := strings.TrimSpace(e.Topic)
	if subject == "" {
		return topic
	}
	return subject + "-" + topic
}

type Prerequisite struct {
	Topic    string   `yaml:"topic" json:"topic"`
	Requires []string `yaml:"requires" json:"requires"`
}

// Catalog is the static, versioned input to graph construction.
type Catalog struct {
	Version       string         `yaml:"version" json:"version"`
	Topics        []Entry        `yaml:"topics" json:"topics"`
	Prerequisites []Prerequisite `yaml:"prerequisites" json:"prerequisites"`
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Topics) == 0 {
		return nil, ErrEmptyCatalog
	}
	return &c, nil
}

func LoadCatalogFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(b)
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog invalid: %v", err))
	}
	return c
}
