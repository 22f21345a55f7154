package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/audio"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/midi"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

var (
	// Access these variables only from the main package:

	Root = &cobra.Command{
		Use:           "mudra",
		Short:         "Turn hand gestures in front of a webcam into MIDI control changes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			l := logger.FromCtx(ctx).WithLevel(LoggerLevel)
			ctx = logger.CtxWithLogger(ctx, l)
			cmd.SetContext(ctx)
			logger.Debugf(ctx, "log-level: %v", LoggerLevel)
		},
	}

	Run = &cobra.Command{
		Use:   "run",
		Short: "Start the camera loop and send controls to the MIDI port",
		Args:  cobra.NoArgs,
		RunE:  runController,
	}

	Ports = &cobra.Command{
		Use:   "ports",
		Short: "List MIDI output ports and audio input devices",
		Args:  cobra.NoArgs,
		RunE:  listPorts,
	}

	Sessions = &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Args:  cobra.NoArgs,
		RunE:  listSessions,
	}

	Replay = &cobra.Command{
		Use:   "replay <session-id>",
		Short: "Send a recorded session to the MIDI port again",
		Args:  cobra.ExactArgs(1),
		RunE:  replaySession,
	}

	GenerateConfig = &cobra.Command{
		Use:   "generate-config",
		Short: "Write the default configuration to the config path",
		Args:  cobra.NoArgs,
		RunE:  generateConfig,
	}

	LoggerLevel = logger.LevelInfo
)

func init() {
	Root.PersistentFlags().Var(&LoggerLevel, "log-level", "logging level (trace, debug, info, warning, error, fatal, panic)")
	Root.PersistentFlags().String("config", config.DefaultPath, "the path to the config file")

	Sessions.Flags().Int("limit", 20, "maximum number of sessions to list, 0 for all")
	Replay.Flags().Float64("rate", 1, "playback rate; 0 sends every event immediately")
	Replay.Flags().String("port", "", "MIDI port to send to (defaults to the configured port)")

	Root.AddCommand(Run)
	Root.AddCommand(Ports)
	Root.AddCommand(Sessions)
	Root.AddCommand(Replay)
	Root.AddCommand(GenerateConfig)
}

func getConfigPath(cmd *cobra.Command) string {
	p, err := cmd.Flags().GetString("config")
	if err != nil || p == "" {
		return config.DefaultPath
	}
	return p
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	return config.Load(cmd.Context(), getConfigPath(cmd))
}

func runController(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	m := metrics.New()
	var feed *server.Feed
	if cfg.Server.Addr != "" {
		feed = server.NewFeed()
	}

	a, err := app.Open(ctx, cfg, feed, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Errorf(ctx, "release resources: %v", err)
		}
	}()

	if feed != nil {
		stop := startMonitor(ctx, cfg, a.Store(), feed, m)
		defer stop()
	}

	return a.Run(ctx)
}

// startMonitor serves the HTTP monitor in the background until the returned func is called.
// st is the store the App records into; the App keeps ownership of it.
func startMonitor(ctx context.Context, cfg config.Config, st *store.Store, feed *server.Feed, m *metrics.Metrics) func() {
	srvCfg := server.Config{
		StaticDir: cfg.Server.StaticDir,
		Store:     st,
		Feed:      feed,
		Metrics:   m.Handler(),
	}

	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.New(srvCtx, srvCfg).ListenAndServe(srvCtx, cfg.Server.Addr); err != nil {
			logger.Errorf(ctx, "monitor: %v", err)
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func listPorts(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "MIDI OUTPUT PORTS")
	names := midi.PortNames()
	if len(names) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for i, name := range names {
		fmt.Fprintf(w, "  %d\t%s\n", i, name)
	}

	fmt.Fprintln(w, "AUDIO INPUT DEVICES")
	devices, err := audio.ListDevices()
	if err != nil {
		logger.Warnf(ctx, "list audio devices: %v", err)
		fmt.Fprintln(w, "  (unavailable)")
		return nil
	}
	for i, d := range devices {
		fmt.Fprintf(w, "  %d\t%s\t%d ch\t%.0f Hz\n", i, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}
	return nil
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Record.DBPath == "" {
		return nil, errors.New("record.db_path is not set in the config")
	}
	return store.New(cfg.Record.DBPath)
}

func listSessions(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.Sessions().List(limit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tPORT\tSTARTED\tDURATION\tFRAMES")
	for _, s := range sessions {
		duration := "running"
		if s.EndedAt != nil {
			duration = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			s.ID, s.Port, s.StartedAt.Local().Format(time.DateTime), duration, s.Frames)
	}
	return nil
}

func replaySession(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rate, _ := cmd.Flags().GetFloat64("rate")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.MIDI.Port = port
	}
	if cfg.Record.DBPath == "" {
		return errors.New("record.db_path is not set in the config")
	}

	st, err := store.New(cfg.Record.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	events, err := st.Events().ListBySession(args[0])
	if err != nil {
		return fmt.Errorf("load session %s: %w", args[0], err)
	}

	sink, err := midi.OpenPort(cfg.MIDI)
	if err != nil {
		return &app.StartupError{Resource: "midi", Err: err}
	}
	defer sink.Close()

	logger.Infof(ctx, "replaying %d events to '%s'", len(events), sink.Port())
	n, err := app.Replay(ctx, events, sink, rate)
	if errors.Is(err, context.Canceled) {
		logger.Infof(ctx, "replay interrupted after %d events", n)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Infof(ctx, "replayed %d events", n)
	return nil
}

func generateConfig(cmd *cobra.Command, args []string) error {
	cfgPath := getConfigPath(cmd)
	if cfgPath == "-" {
		b, err := config.Marshal(config.Default())
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(b)
		return err
	}
	return config.Write(cmd.Context(), cfgPath, config.Default())
}
