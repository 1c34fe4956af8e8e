package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/bingohall/internal/room"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind             string
	callInterval     time.Duration
	emptyRoomTimeout time.Duration
	logJSON          bool
	maxPlayers       int
	maxRooms         int
	port             int
	prefix           string
	profile          bool
	tlsCert          string
	tlsKey           string
	verbose          bool
	version          bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.emptyRoomTimeout <= 0 {
		return fmt.Errorf("invalid empty room timeout (must be positive): %s", c.emptyRoomTimeout)
	}
	if c.callInterval < room.MinCallInterval || c.callInterval > room.MaxCallInterval {
		return fmt.Errorf("invalid call interval (must be between %s and %s): %s", room.MinCallInterval, room.MaxCallInterval, c.callInterval)
	}
	if c.maxPlayers < 1 {
		return fmt.Errorf("invalid max players (must be at least 1): %d", c.maxPlayers)
	}
	if c.maxRooms < 0 {
		return fmt.Errorf("invalid max rooms (must not be negative): %d", c.maxRooms)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BINGOHALL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "bingohall",
		Short:         "Hosts multiplayer bingo rooms over websockets.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: BINGOHALL_BIND)")
	fs.DurationVar(&cfg.callInterval, "call-interval", 5*time.Second, "default auto-call interval for new rooms (env: BINGOHALL_CALL_INTERVAL)")
	fs.DurationVar(&cfg.emptyRoomTimeout, "empty-room-timeout", 5*time.Minute, "time before empty rooms are removed (env: BINGOHALL_EMPTY_ROOM_TIMEOUT)")
	fs.BoolVar(&cfg.logJSON, "log-json", false, "write logs as JSON instead of console output (env: BINGOHALL_LOG_JSON)")
	fs.IntVar(&cfg.maxPlayers, "max-players", 100, "largest player cap a room may request (env: BINGOHALL_MAX_PLAYERS)")
	fs.IntVar(&cfg.maxRooms, "max-rooms", 0, "maximum number of live rooms, 0 for unlimited (env: BINGOHALL_MAX_ROOMS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: BINGOHALL_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: BINGOHALL_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: BINGOHALL_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: BINGOHALL_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: BINGOHALL_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: BINGOHALL_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: BINGOHALL_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("bingohall v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
