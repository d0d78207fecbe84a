package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/rover/pkg/drive"
	"github.com/gwillem/rover/pkg/kinematics"
	"github.com/gwillem/rover/pkg/sequence"
)

type ComposeCommand struct {
	DryRun bool `long:"dry-run" description:"Rehearse sequences without hardware (scaled-down timing)"`
}

func (c *ComposeCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Rover Compose"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
	fmt.Println("Distances in inches, angles in degrees, speed in percent.")
	fmt.Println()

	actuator, turnRadius := c.connect()
	engine := sequence.NewEngine(sequence.Config{
		Actuator:   actuator,
		TurnRadius: turnRadius,
	})

	hasRun := false
	for {
		switch pickAction(engine, hasRun) {
		case "add":
			addMovement(engine)
		case "show":
			showSequence(engine)
		case "estimate":
			total := engine.EstimateTotalTime()
			fmt.Printf("Estimated motion time: %.1fs (excluding settle pauses)\n", total.Seconds())
		case "run":
			if engine.State() == sequence.Building {
				if err := engine.Finish(); err != nil {
					fmt.Println(errorStyle.Render(err.Error()))
					continue
				}
			}
			runSequence(engine, false)
			hasRun = true
		case "replay":
			runSequence(engine, true)
		case "clear":
			if err := engine.Clear(); err != nil {
				fmt.Println(errorStyle.Render(err.Error()))
				continue
			}
			hasRun = false
			fmt.Println("Sequence cleared.")
		case "quit":
			fmt.Println()
			fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
			fmt.Println("Shutting down...")
			if err := actuator.Stop(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: stop: %v\n", err)
			}
			if closer, ok := actuator.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: close: %v\n", err)
				}
			}
			fmt.Println(successStyle.Render("Done. Goodbye!"))
			return nil
		}
	}
}

// connect opens the configured base, or a simulator under --dry-run.
func (c *ComposeCommand) connect() (drive.Actuator, float64) {
	if c.DryRun {
		fmt.Println(dimStyle.Render("Dry run: no hardware, 10x speed."))
		fmt.Println()
		return &drive.Sim{}, 0
	}

	cfg, err := drive.LoadConfig()
	if err != nil || !cfg.IsConfigured() {
		fmt.Fprintln(os.Stderr, "No base configured. Run 'rover setup' first.")
		os.Exit(1)
	}

	base, err := drive.NewBase(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to base: %v\n", err)
		os.Exit(1)
	}

	if err := base.Enable(context.Background()); err != nil {
		base.Close()
		fmt.Fprintf(os.Stderr, "Error enabling wheels: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connected to base on %s\n", cfg.Port)
	fmt.Println()
	return base, cfg.Geometry.TurnRadius
}

// pickAction offers only the actions legal in the engine's current state.
func pickAction(engine *sequence.Engine, hasRun bool) string {
	var options []huh.Option[string]

	state := engine.State()
	if state == sequence.Idle || state == sequence.Building {
		options = append(options, huh.NewOption("Add movement", "add"))
	}
	if engine.Len() > 0 {
		options = append(options,
			huh.NewOption("Show sequence", "show"),
			huh.NewOption("Estimate total time", "estimate"),
		)
		if hasRun && state == sequence.Ready {
			options = append(options, huh.NewOption("Replay sequence", "replay"))
		} else {
			options = append(options, huh.NewOption("Run sequence", "run"))
		}
	}
	if state == sequence.Ready {
		options = append(options, huh.NewOption("Clear sequence", "clear"))
	}
	options = append(options, huh.NewOption("Quit", "quit"))

	var action string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Sequence: %d movement(s)", engine.Len())).
				Options(options...).
				Value(&action),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return action
}

func addMovement(engine *sequence.Engine) {
	var dir string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Movement type").
				Options(
					huh.NewOption("Forward", string(drive.Forward)),
					huh.NewOption("Backward", string(drive.Backward)),
					huh.NewOption("Left (arc turn)", string(drive.Left)),
					huh.NewOption("Right (arc turn)", string(drive.Right)),
					huh.NewOption("Rotate in place", string(drive.Rotate)),
				).
				Value(&dir),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	direction := drive.Direction(dir)
	speed := askNumber("Speed (%)", "10-100, percent of maximum speed", func(v float64) error {
		if v < 10 || v > 100 {
			return fmt.Errorf("speed must be between 10 and 100")
		}
		return nil
	})

	var magnitude float64
	if direction.Linear() {
		magnitude = askNumber("Distance (inches)", "How far to travel", func(v float64) error {
			if v <= 0 {
				return fmt.Errorf("must be positive")
			}
			return nil
		})
	} else {
		magnitude = askNumber("Angle (degrees)", "Positive turns clockwise, negative counter-clockwise", func(v float64) error {
			if v == 0 {
				return fmt.Errorf("must be non-zero")
			}
			return nil
		})
	}

	pos, err := engine.Add(direction, kinematics.SpeedFactorFromPercent(speed), magnitude)
	if err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Added #%d", pos)))
}

func askNumber(title, description string, check func(float64) error) float64 {
	var raw string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Description(description).
				Validate(func(s string) error {
					v, err := strconv.ParseFloat(s, 64)
					if err != nil {
						return fmt.Errorf("enter a number")
					}
					return check(v)
				}).
				Value(&raw),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	v, _ := strconv.ParseFloat(raw, 64)
	return v
}

func showSequence(engine *sequence.Engine) {
	headerCellStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	indexStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)

	movements := engine.Movements()
	rows := make([][]string, 0, len(movements))
	for i, m := range movements {
		unit := "in"
		if !m.Dir.Linear() {
			unit = "°"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			string(m.Dir),
			fmt.Sprintf("%.0f%%", m.SpeedFactor*100),
			fmt.Sprintf("%.1f%s", m.Magnitude, unit),
			fmt.Sprintf("%.2fs", m.Duration()),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "Direction", "Speed", "Magnitude", "Est. time").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			if col == 0 {
				return indexStyle
			}
			return cellStyle
		})

	fmt.Println(t.Render())
	fmt.Printf("Total estimated motion time: %.1fs\n", engine.EstimateTotalTime().Seconds())
}
