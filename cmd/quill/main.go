package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/akmonengine/quill"
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
)

var (
	configFile string
	duration   float64
	numBodies  int
	verbose    bool
	height     int
	width      int
)

var (
	title  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	label  = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Width(14)
	value  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	asleep = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	box    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quill",
		Short: "rigid-body contact dynamics",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().Float64Var(&duration, "time", 5.0, "simulated duration (s)")
	rootCmd.PersistentFlags().IntVar(&numBodies, "bodies", 4, "number of bodies in the scene")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every substep")

	runCmd := &cobra.Command{
		Use:       "run [scene]",
		Short:     "run a scene and print the final state",
		Args:      cobra.ExactArgs(1),
		ValidArgs: sceneNames(),
		RunE:      runScene,
	}

	plotCmd := &cobra.Command{
		Use:       "plot [scene]",
		Short:     "plot the height of the followed body",
		Args:      cobra.ExactArgs(1),
		ValidArgs: sceneNames(),
		RunE:      plotScene,
	}
	plotCmd.Flags().IntVar(&height, "height", 12, "plot height")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}

	rootCmd.AddCommand(runCmd, plotCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(configFile)
}

func buildWorld(name string) (*quill.World, *config.Config, *actor.Body, error) {
	build, ok := scenes[name]
	if !ok {
		return nil, nil, nil, fmt.Errorf("unknown scene %q, want one of %s", name, strings.Join(sceneNames(), ", "))
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	world, err := quill.NewWorld(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	world.Logger = slog.Default()

	followed, err := build(world, numBodies)
	if err != nil {
		return nil, nil, nil, err
	}
	return world, cfg, followed, nil
}

func steps(cfg *config.Config) int {
	return max(1, int(duration/cfg.Timestep))
}

func runScene(cmd *cobra.Command, args []string) error {
	world, cfg, _, err := buildWorld(args[0])
	if err != nil {
		return err
	}

	sleeping, collisions := 0, 0
	world.Events.Subscribe(quill.ON_SLEEP, func(quill.Event) { sleeping++ })
	world.Events.Subscribe(quill.COLLISION_ENTER, func(quill.Event) { collisions++ })

	n := steps(cfg)
	for range n {
		world.Step(cfg.Timestep)
	}

	contacts := 0
	for _, c := range world.Contacts() {
		contacts += len(c.Points)
	}
	stats := world.Stats()

	lines := []string{
		title.Render(fmt.Sprintf("scene %s", args[0])),
		row("steps", fmt.Sprintf("%d x %.4fs", n, cfg.Timestep)),
		row("collisions", fmt.Sprint(collisions)),
		row("sleep events", fmt.Sprint(sleeping)),
		row("contacts", fmt.Sprint(contacts)),
		row("iterations", fmt.Sprintf("%d (%d restarts)", stats.Iterations, stats.Restarts)),
		row("residual", fmt.Sprintf("%.3g", stats.Residual)),
		"",
	}
	for _, body := range world.Bodies {
		if body.Fixed() {
			continue
		}
		p := body.Transform.Position
		state := value.Render(fmt.Sprintf("(%7.3f, %7.3f, %7.3f)", p.X(), p.Y(), p.Z()))
		if body.Sleeping {
			state += " " + asleep.Render("asleep")
		}
		lines = append(lines, row(fmt.Sprintf("body %d", body.ID), state))
	}

	fmt.Println(box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	return nil
}

func row(name, text string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, label.Render(name), value.Render(text))
}

func plotScene(cmd *cobra.Command, args []string) error {
	world, cfg, followed, err := buildWorld(args[0])
	if err != nil {
		return err
	}
	if followed == nil {
		return fmt.Errorf("scene %q has no dynamic body", args[0])
	}

	n := steps(cfg)
	data := make([]float64, 0, n)
	for range n {
		world.Step(cfg.Timestep)
		data = append(data, followed.Transform.Position.Y())
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("%s: height of body %d over %.1fs", args[0], followed.ID, duration)),
	)
	fmt.Println(graph)
	return nil
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		return config.Save(args[0], cfg)
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
