package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"scriptdeck/internal/cli/scheme/colours"
	"scriptdeck/internal/config"
	"scriptdeck/internal/domain/generator"
	"scriptdeck/internal/script/deck"
	"scriptdeck/internal/script/tts"
)

func main() {

	config.SetDefaults()
	if err := config.Init(); err != nil {
		logrus.WithError(err).Warn("Using default configuration")
	}
	cfg := config.Load()

	app, err := deck.New(cfg, deck.Options{})
	if err != nil {
		logrus.WithError(err).Fatal("failed to start scriptdeck")
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Stop()
		if err := app.Close(); err != nil {
			logrus.WithError(err).Debug("Shutdown was not clean")
		}
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! See you next take! 🎬"))
		os.Exit(0)
	}()

	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "scriptdeck",
		Short: "🎬 Write short narration scripts and hear them read aloud",
		Long: `
┌──────────────────────────────────────┐
│  🎬 Welcome to ScriptDeck! 🎙️         │
│  Short scripts, written and spoken   │
└──────────────────────────────────────┘

ScriptDeck writes ~60 second narration scripts with Gemini, cleans out
stage directions and labels, and reads them aloud chunk by chunk.
		`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := config.SetupLogging(cfg.LogLevel, verbose); err != nil {
				logrus.WithError(err).Warn("Falling back to warn level")
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}

	// Generate command
	generateCmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: "✍️ Write a narration script",
		Long:  "Ask Gemini for a ~60 second narration script about a topic and save it to history",
		Args:  cobra.MinimumNArgs(1),
		Run:   app.Generate,
	}

	// Speak command
	speakCmd := &cobra.Command{
		Use:   "speak [file|-]",
		Short: "🔊 Read a script aloud",
		Long:  "Read a file, standard input, or the latest generated script aloud",
		Args:  cobra.MaximumNArgs(1),
		Run:   app.Speak,
	}

	// Clean command
	cleanCmd := &cobra.Command{
		Use:   "clean [file|-]",
		Short: "🧽 Show the text that will be spoken",
		Long:  "Strip timestamps, directions, labels and symbols from a script and print the result",
		Args:  cobra.MaximumNArgs(1),
		Run:   app.Clean,
	}

	// Visuals command
	visualsCmd := &cobra.Command{
		Use:   "visuals [n]",
		Short: "🎨 Image prompts for a script",
		Long:  "Write five image prompts illustrating a saved script",
		Args:  cobra.MaximumNArgs(1),
		Run:   app.Visuals,
	}

	// Export command
	exportCmd := &cobra.Command{
		Use:   "export [n]",
		Short: "💾 Save a script to disk",
		Long:  "Save a script as text, or as a zip with the script, visual prompts and production info",
		Args:  cobra.MaximumNArgs(1),
		Run:   app.Export,
	}

	// Copy command
	copyCmd := &cobra.Command{
		Use:   "copy [n]",
		Short: "📋 Copy a script to the clipboard",
		Args:  cobra.MaximumNArgs(1),
		Run:   app.Copy,
	}

	// Voices command
	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎤 List available voices",
		Long:  "List the voices of the configured engine, " + cfg.Language + " voices first",
		Args:  cobra.NoArgs,
		Run:   app.ListVoices,
	}

	// Settings command
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Configure voice settings",
		Long: "Show or change speed, pitch and voice. Changes are remembered.\n" +
			"Engines on this platform (tts.type): " + availableEngines(),
		Args:  cobra.NoArgs,
		Run:   app.ConfigureSettings,
	}

	// Add flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")
	generateCmd.Flags().StringP("persona", "p", string(generator.PersonaDefault),
		"Script tone: "+strings.Join(generator.Personas(), ", "))
	generateCmd.Flags().BoolP("speak", "s", false, "Read the script aloud once written")
	generateCmd.Flags().Bool("visuals", false, "Also write image prompts")
	cleanCmd.Flags().BoolP("chunks", "c", false, "Show the chunks sent to the speech engine")
	visualsCmd.Flags().BoolP("refresh", "r", false, "Write new prompts even if some are saved")
	exportCmd.Flags().BoolP("zip", "z", false, "Export a production zip")
	exportCmd.Flags().StringP("out", "o", ".", "Directory to write to")
	settingsCmd.Flags().Float64("rate", cfg.Rate, "Speaking rate (0.5 - 2.0)")
	settingsCmd.Flags().Float64("pitch", cfg.Pitch, "Voice pitch (0.5 - 2.0)")
	settingsCmd.Flags().String("voice", "", "Voice id, see 'scriptdeck voices' (empty for engine default)")

	rootCmd.AddCommand(generateCmd, speakCmd, cleanCmd, visualsCmd, exportCmd, copyCmd, voicesCmd, settingsCmd)

	// Add history commands
	app.AddHistoryCommands(rootCmd)

	err = rootCmd.Execute()
	if cerr := app.Close(); cerr != nil {
		logrus.WithError(cerr).Debug("Shutdown was not clean")
	}
	if err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func availableEngines() string {
	var names []string
	for _, e := range tts.GetAvailableEngines() {
		names = append(names, e.String())
	}
	return strings.Join(names, ", ")
}
