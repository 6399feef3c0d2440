package main

import (
	"os"
	"time"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// scenario describes the initial state of the demo election and the accounts
// allowed to log in, on top of the built-in demo credentials.
type scenario struct {
	Proposals []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"proposals"`

	Voters []struct {
		Address string `yaml:"address"`
		Name    string `yaml:"name"`
	} `yaml:"voters"`

	Period struct {
		Start time.Time `yaml:"start"`
		End   time.Time `yaml:"end"`
	} `yaml:"period"`

	Accounts []struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
		Address  string `yaml:"address"`
	} `yaml:"accounts"`
}

// loadScenario reads the scenario file. An empty path yields an empty
// scenario.
func loadScenario(path string) (scenario, error) {
	var scn scenario

	if path == "" {
		return scn, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return scn, xerrors.Errorf("failed to read scenario file: %v", err)
	}

	err = yaml.Unmarshal(data, &scn)
	if err != nil {
		return scn, xerrors.Errorf("failed to parse scenario file: %v", err)
	}

	return scn, nil
}
