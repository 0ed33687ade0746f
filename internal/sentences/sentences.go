package sentences

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrEmptyPool = errors.New("sentence pool is empty")

var builtin = []string{
	"The quick brown fox jumps over the lazy dog",
	"Discord API is fun",
	"Golang is fast",
	"Speed typing is challenging",
	"Practice makes perfect",
	"Code with confidence",
	"Discord bots are awesome",
	"Go routines are powerful",
	"Clean code matters",
	"Type fast and accurate",
}

// Pool hands out target sentences for new rooms. It is read-only after
// construction and safe for concurrent use.
type Pool struct {
	sentences []string
}

func Default() *Pool {
	return &Pool{sentences: append([]string(nil), builtin...)}
}

func New(sentences []string) (*Pool, error) {
	var clean []string
	for _, s := range sentences {
		if s = strings.TrimSpace(s); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) == 0 {
		return nil, ErrEmptyPool
	}
	return &Pool{sentences: clean}, nil
}

type file struct {
	Sentences []string `yaml:"sentences"`
}

// LoadFile reads a YAML document of the form:
//
//	sentences:
//	  - The quick brown fox jumps over the lazy dog
//	  - Practice makes perfect
func LoadFile(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sentences file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sentences file: %w", err)
	}
	return New(f.Sentences)
}

func (p *Pool) Pick() string {
	return p.sentences[rand.IntN(len(p.sentences))]
}

func (p *Pool) Len() int { return len(p.sentences) }
