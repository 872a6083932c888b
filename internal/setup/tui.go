// Package setup is the first-run terminal wizard: it asks for the engine
// binary, the data directory, and the poll cadences, then writes the YAML
// config the daemon starts from.
package setup

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/z-bitcoinz/blackamber/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the configuration wizard and writes config.gen.yaml.
func RunTUI() error {
	var (
		engineBin       string
		dataDir         string
		fastIntervalStr string
		slowIntervalStr string
		confirm         bool
	)

	// defaults
	fastIntervalStr = "5s"
	slowIntervalStr = "60s"

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BLACKAMBER SETUP"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Point the wallet at its engine and storage.\n"))

	fmt.Println(stepStyle.Render("STEP 1: ENGINE"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Engine binary").
				Description("Path to the native wallet engine executable").
				Value(&engineBin).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("engine path cannot be empty")
					}
					if _, err := os.Stat(s); err != nil {
						return fmt.Errorf("cannot stat %s", s)
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BLACKAMBER SETUP"))
	fmt.Println(stepStyle.Render("STEP 2: STORAGE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Data directory").
				Description("Where the transaction database and journals live (empty for default)").
				Value(&dataDir),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BLACKAMBER SETUP"))
	fmt.Println(stepStyle.Render("STEP 3: TIMING"))
	validateDuration := func(s string) error {
		_, err := time.ParseDuration(s)
		return err
	}
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Fast poll interval").
				Description("Change-detection cadence (e.g. 5s)").
				Value(&fastIntervalStr).
				Validate(validateDuration),
			huh.NewInput().
				Title("Slow poll interval").
				Description("Full sync-and-save cadence (e.g. 60s)").
				Value(&slowIntervalStr).
				Validate(validateDuration),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BLACKAMBER SETUP"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Engine: %s\nData dir: %s\nFast interval: %s\nSlow interval: %s\n",
		engineBin, orDefault(dataDir), fastIntervalStr, slowIntervalStr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cfg := config.FileConfig{
		EngineBin:    engineBin,
		DataDir:      dataDir,
		FastInterval: fastIntervalStr,
		SlowInterval: slowIntervalStr,
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(
		fmt.Sprintf("\n✓ Configuration saved to %s\nStarting wallet...", filename)))
	time.Sleep(1500 * time.Millisecond)
	return nil
}

func orDefault(dir string) string {
	if dir == "" {
		return "(default)"
	}
	return dir
}
