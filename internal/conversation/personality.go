package conversation

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// PersonalityCatalogue is the loaded-once-at-startup set of personas
// referenced by set_personality.
type PersonalityCatalogue struct {
	byKey map[string]umebot.Personality
}

// personalityFile is the on-disk YAML shape for the catalogue.
type personalityFile struct {
	Personalities []struct {
		Key          string `yaml:"key"`
		DisplayName  string `yaml:"display_name"`
		RobotName    string `yaml:"robot_name"`
		SystemPrompt string `yaml:"system_prompt"`
	} `yaml:"personalities"`
}

// ParsePersonalityCatalogue decodes a YAML catalogue document.
func ParsePersonalityCatalogue(data []byte) (*PersonalityCatalogue, error) {
	var pf personalityFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("conversation: parse personality catalogue: %w", err)
	}
	cat := &PersonalityCatalogue{byKey: make(map[string]umebot.Personality, len(pf.Personalities))}
	for _, p := range pf.Personalities {
		if p.Key == "" {
			continue
		}
		cat.byKey[p.Key] = umebot.Personality{
			Key:          p.Key,
			DisplayName:  p.DisplayName,
			RobotName:    p.RobotName,
			SystemPrompt: p.SystemPrompt,
		}
	}
	return cat, nil
}

// Has reports whether key names a catalogued personality.
func (c *PersonalityCatalogue) Has(key string) bool {
	if c == nil {
		return false
	}
	_, ok := c.byKey[key]
	return ok
}

// Get returns the personality for key.
func (c *PersonalityCatalogue) Get(key string) (umebot.Personality, bool) {
	if c == nil {
		return umebot.Personality{}, false
	}
	p, ok := c.byKey[key]
	return p, ok
}

// Keys returns every catalogued key, for the tablet's
// "available_personalities" settings snapshot.
func (c *PersonalityCatalogue) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.byKey))
	for k := range c.byKey {
		keys = append(keys, k)
	}
	return keys
}
