// Command-line interface to a voxchunk volume.
// Serves a chunked voxel volume over HTTP and moves raw chunks in and out of its store.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/janelia-flyem/voxchunk/dvid"
	"github.com/janelia-flyem/voxchunk/server"
	"github.com/janelia-flyem/voxchunk/storage"
)

//go:generate go run ../gen-version -o version.go

// Version of the voxchunk command.
const Version = "0.9.0"

// gitVersion is set by a generated version.go when built from a git checkout.
var gitVersion = "unknown"

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Log at debug level if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Path to TOML configuration.  Leave unset to keep chunks in memory only.
	configFile = flag.String("config", "", "")

	// Address for http communication, overriding the configuration.
	httpAddress = flag.String("http", "", "")
)

const helpMessage = `
voxchunk serves a volume of run-length encoded voxel chunks

Usage: voxchunk [options] <command>

      -config     =string   Path to TOML configuration file.
      -http       =string   Address for HTTP communication (default %s).
      -verbose    (flag)    Log at debug level.
  -h, -help       (flag)    Show help message

Commands:

	help
	version
	serve
	list-chunks
	get-chunk <cx,cy> <output file>
	put-chunk <cx,cy> <input file>
	ping <delay in seconds> [server address]

The chunk commands act on the store named in the configuration file.
`

var usage = func() {
	fmt.Printf(helpMessage, server.DefaultWebAddress)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	// Capture ctrl+c and other interrupts.  Commands see a cancelled context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := dvid.Command(flag.Args())
	if err := DoCommand(ctx, command); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}

func loadConfig() (*server.Config, error) {
	cfg := new(server.Config)
	if *configFile != "" {
		var err error
		if cfg, err = server.LoadConfig(*configFile); err != nil {
			return nil, err
		}
	}
	if *httpAddress != "" {
		cfg.Server.HTTPAddress = *httpAddress
	}
	if *runVerbose {
		cfg.Logging.Level = dvid.DebugMode.String()
	}
	return cfg, nil
}

// DoCommand serves as a switchboard for commands.
func DoCommand(ctx context.Context, cmd dvid.Command) error {
	if len(cmd) == 0 {
		return fmt.Errorf("blank command")
	}
	switch cmd.Name() {
	case "version":
		fmt.Printf("voxchunk %s (git %s), chunk store format %s\n", Version, gitVersion, storage.FormatVersion)
		return nil
	case "serve":
		return DoServe(ctx, cmd)
	case "list-chunks":
		return DoListChunks(ctx, cmd)
	case "get-chunk":
		return DoGetChunk(ctx, cmd)
	case "put-chunk":
		return DoPutChunk(ctx, cmd)
	case "ping":
		return DoPing(ctx, cmd)
	}
	return fmt.Errorf("unknown command %q, try 'voxchunk help'", cmd.Name())
}

// DoServe runs the web server until interrupted.
func DoServe(ctx context.Context, cmd dvid.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cfg.Logging.NewLogger()
	defer logger.Shutdown()

	s, err := server.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	logger.Infof("voxchunk %s serving %s\n", Version, s.Stats().VolumeStats())
	return s.Serve(ctx)
}

// openStore opens the configured store for the chunk commands.
func openStore(ctx context.Context) (*storage.ChunkStore, dvid.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := dvid.NewLeveledLogger(dvid.NewStdLogger(os.Stderr), dvid.WarningMode)
	if *runVerbose {
		logger = dvid.NewLeveledLogger(dvid.NewStdLogger(os.Stderr), dvid.DebugMode)
	}
	store, _, err := cfg.OpenStore(ctx, logger)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, fmt.Errorf("%s needs a configuration with a store engine", strings.Join(os.Args[1:], " "))
	}
	return store, logger, nil
}

// DoListChunks prints the coordinates of every stored chunk.
func DoListChunks(ctx context.Context, cmd dvid.Command) error {
	store, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	coords, err := store.Chunks(ctx)
	if err != nil {
		return err
	}
	for _, c := range coords {
		fmt.Printf("%d,%d\n", c[0], c[1])
	}
	return nil
}

// DoGetChunk writes the raw voxel data of a stored chunk to a file.
func DoGetChunk(ctx context.Context, cmd dvid.Command) error {
	var coordStr, filename string
	cmd.CommandArgs(&coordStr, &filename)
	if coordStr == "" || filename == "" {
		return fmt.Errorf("get-chunk must be followed by chunk coordinate and output file")
	}
	coord, err := dvid.ParseChunkPoint2d(coordStr)
	if err != nil {
		return err
	}
	store, logger, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	data, err := store.GetChunk(ctx, coord)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("chunk %s is not in %s", coord, store)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return err
	}
	logger.Infof("Wrote chunk %s to %s\n", coord, filename)
	return nil
}

// DoPutChunk stores the raw voxel data in a file as a chunk.
func DoPutChunk(ctx context.Context, cmd dvid.Command) error {
	var coordStr, filename string
	cmd.CommandArgs(&coordStr, &filename)
	if coordStr == "" || filename == "" {
		return fmt.Errorf("put-chunk must be followed by chunk coordinate and input file")
	}
	coord, err := dvid.ParseChunkPoint2d(coordStr)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	store, logger, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.PutChunk(ctx, coord, data); err != nil {
		return err
	}
	logger.Infof("Stored chunk %s from %s (%s)\n", coord, filename, dvid.HumanBytes(len(data)))
	return nil
}

// DoPing periodically fetches stats from a running server as a heartbeat.
func DoPing(ctx context.Context, cmd dvid.Command) error {
	var delayStr, addr string
	cmd.CommandArgs(&delayStr, &addr)
	pause, err := strconv.Atoi(delayStr)
	if err != nil || pause <= 0 {
		return fmt.Errorf("ping must be followed by a delay in seconds, got %q", delayStr)
	}
	if addr == "" {
		if addr = *httpAddress; addr == "" {
			addr = server.DefaultWebAddress
		}
	}
	url := addr + "/api/stats"
	if !strings.Contains(addr, "://") {
		url = "http://" + url
	}

	ticker := time.NewTicker(time.Duration(pause) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			st, err := fetchStats(ctx, url)
			if err != nil {
				return fmt.Errorf("%s: %v", t.Format(time.RFC3339), err)
			}
			fmt.Printf("%s: %s, up %s\n", t.Format(time.RFC3339), st.VolumeStats(), time.Duration(st.UptimeSeconds*float64(time.Second)).Round(time.Second))
		}
	}
}

func fetchStats(ctx context.Context, url string) (server.Stats, error) {
	var st server.Stats
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return st, err
	}
	req.Header.Set("Accept", server.MsgpackContentType)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, fmt.Errorf("error on GET of %q: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return st, err
	}
	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("bad response from %q: %s", url, resp.Status)
	}
	_, err = st.UnmarshalMsg(body)
	return st, err
}
