// Package guide holds the welcome-screen content shown when no chat is
// selected: a short intro and a handful of example questions that can be
// submitted with one keypress.
package guide

import (
	_ "embed"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var questionsYAML []byte

type Guide struct {
	Title     string   `yaml:"title"`
	Tagline   string   `yaml:"tagline"`
	Questions []string `yaml:"questions"`
}

// Load parses the embedded guide document.
func Load() (Guide, error) {
	var g Guide
	if err := yaml.Unmarshal(questionsYAML, &g); err != nil {
		return Guide{}, errors.Wrap(err, "guide: parse embedded questions")
	}
	if len(g.Questions) == 0 {
		return Guide{}, errors.New("guide: no example questions")
	}
	return g, nil
}
