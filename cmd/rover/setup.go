package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/rover/pkg/drive"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Rover Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━"))
	fmt.Println()

	// Step 1: Find the base and identify its wheels
	cfg := scanForBase()

	// Step 2: Drive geometry
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Drive Geometry ━━━"))
	fmt.Println()
	collectGeometry(cfg)

	if err := cfg.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", drive.DefaultConfigFile)
	fmt.Println()
	fmt.Println("Build a movement sequence with: " + headerStyle.Render("rover compose"))

	return nil
}

func scanForBase() *drive.Config {
	fmt.Println("Scanning for the base...")
	fmt.Println()

	port, bus, servos := findBase()
	defer bus.Close()

	fmt.Printf("Found %d servo(s) on %s. Let's identify the wheels...\n", len(servos), port)

	// Identify each wheel by wiggling it
	var leftID, rightID int

	for _, s := range servos {
		role := identifyWheelWithWiggle(bus, s, leftID == 0, rightID == 0)
		switch role {
		case "left":
			leftID = s.ID
		case "right":
			rightID = s.ID
		}

		if leftID != 0 && rightID != 0 {
			break
		}
	}

	fmt.Println()

	if leftID == 0 || rightID == 0 {
		fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
		if leftID == 0 {
			fmt.Println("Left wheel not identified.")
		}
		if rightID == 0 {
			fmt.Println("Right wheel not identified.")
		}
		fmt.Println()
		fmt.Println("Both wheels are required to drive the base.")
		os.Exit(1)
	}

	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Wheels identified:"))
	fmt.Printf("  Left:  servo %d\n", leftID)
	fmt.Printf("  Right: servo %d\n", rightID)

	return &drive.Config{
		Port:   port,
		Wheels: drive.Wheels{LeftID: leftID, RightID: rightID},
	}
}

// findBase scans all serial ports and returns the first one carrying at
// least two servos.
func findBase() (string, *feetech.Bus, []feetech.FoundServo) {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing serial ports: %v\n", err)
		os.Exit(1)
	}

	for _, port := range ports {
		bus, servos, err := connectToBase(port)
		if err != nil {
			continue
		}
		return port, bus, servos
	}

	fmt.Println("No base found.")
	fmt.Println("Make sure the base is connected and powered on.")
	os.Exit(1)
	return "", nil, nil
}

func connectToBase(port string) (*feetech.Bus, []feetech.FoundServo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	servos, err := bus.Scan(ctx, 1, 12)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}

	if len(servos) < 2 {
		bus.Close()
		return nil, nil, fmt.Errorf("not a two-wheel base (found %d servos)", len(servos))
	}

	return bus, servos, nil
}

func identifyWheelWithWiggle(bus *feetech.Bus, found feetech.FoundServo, needLeft, needRight bool) string {
	ctx := context.Background()
	servo := feetech.NewServo(bus, found.ID, found.Model)

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return ""
	}

	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return ""
	}

	fmt.Printf("\n  Wiggling servo %d...\n", found.ID)

	// Wiggle: single gentle, slow movement
	wiggleAmount := 100
	moveTimeMs := 500
	servo.SetPositionWithTime(ctx, originalPos+wiggleAmount, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	servo.SetPositionWithTime(ctx, originalPos-wiggleAmount, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)

	// Return to original position
	servo.SetPositionWithTime(ctx, originalPos, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)

	servo.Disable(ctx)

	// Build options based on what's still needed
	var options []huh.Option[string]
	if needLeft {
		options = append(options, huh.NewOption("Left wheel", "left"))
	}
	if needRight {
		options = append(options, huh.NewOption("Right wheel", "right"))
	}
	options = append(options, huh.NewOption("Skip this servo", "skip"))

	var role string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Which wheel is servo %d?", found.ID)).
				Description("The wheel that just wiggled").
				Options(options...).
				Value(&role),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	if role == "skip" {
		return ""
	}

	return role
}

func collectGeometry(cfg *drive.Config) {
	wheelDiameter := "65"
	trackWidth := "150"
	turnRadius := "0"

	positiveMM := func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("enter a number")
		}
		if v <= 0 {
			return fmt.Errorf("must be positive")
		}
		return nil
	}
	nonNegativeMM := func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("enter a number")
		}
		if v < 0 {
			return fmt.Errorf("must not be negative")
		}
		return nil
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Wheel diameter (mm)").
				Description("Outer diameter of the drive wheels").
				Validate(positiveMM).
				Value(&wheelDiameter),
			huh.NewInput().
				Title("Track width (mm)").
				Description("Distance between the two wheel centers").
				Validate(positiveMM).
				Value(&trackWidth),
			huh.NewInput().
				Title("Turn radius (mm)").
				Description("Arc radius for left/right moves; 0 pivots in place").
				Validate(nonNegativeMM).
				Value(&turnRadius),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	d, _ := strconv.ParseFloat(wheelDiameter, 64)
	w, _ := strconv.ParseFloat(trackWidth, 64)
	r, _ := strconv.ParseFloat(turnRadius, 64)

	cfg.Geometry = drive.Geometry{
		WheelDiameter: d / 1000,
		TrackWidth:    w / 1000,
		TurnRadius:    r / 1000,
		CountsPerTurn: drive.DefaultCountsPerTurn,
	}
}
