package questionnaire

import (
	_ "embed"
	"fmt"

	"github.com/goccy/go-yaml"
)

const scaleType = "scale"

type Option struct {
	Value int    `yaml:"value" json:"value"`
	Text  string `yaml:"text" json:"text"`
}

type Question struct {
	Question      string   `yaml:"question" json:"question"`
	Type          string   `yaml:"type" json:"type"`
	Options       []Option `yaml:"options" json:"options"`
	FollowUpAreas []string `yaml:"follow_up_areas" json:"follow_up_areas"`
}

//go:embed fallback.yaml
var fallbackYAML []byte

// Bank is the fixed question set used when generation fails.
type Bank []Question

func LoadBank(data []byte) (Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}
	for i := range b {
		if b[i].Type == "" {
			b[i].Type = scaleType
		}
		if b[i].FollowUpAreas == nil {
			b[i].FollowUpAreas = []string{}
		}
	}
	return b, nil
}

func DefaultBank() Bank {
	b, err := LoadBank(fallbackYAML)
	if err != nil {
		panic(err)
	}
	return b
}

// Pick cycles through the bank: question 1 is entry 0, question len+1 wraps.
func (b Bank) Pick(questionNumber int) Question {
	n := len(b)
	idx := ((questionNumber-1)%n + n) % n
	return b[idx]
}
