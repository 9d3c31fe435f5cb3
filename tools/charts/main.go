// Command charts renders the analysis charts from a file of order timestamps
// (RFC 3339, one per line) without talking to Discord.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stollenaar/numbercruncher/internal/commands/analyzecommand"
	"github.com/stollenaar/numbercruncher/internal/orders"
	"github.com/stollenaar/numbercruncher/internal/util"
	"github.com/stollenaar/numbercruncher/internal/util/charts"
)

var (
	input    = flag.String("in", "orders.txt", "File with one order timestamp per line")
	output   = flag.String("out", ".", "Directory to write the charts to")
	timezone = flag.String("tz", "US/Eastern", "Timezone to bucket orders in")
	label    = flag.String("label", "EST", "Timezone label used in titles and file names")
	debug    = flag.Bool("debug", false, "Debug logging")
)

type fileFetcher struct {
	path string
}

func (f fileFetcher) Fetch(ctx context.Context, channelID snowflake.ID) ([]orders.Order, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var found []orders.Order
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		at, err := time.Parse(time.RFC3339, line)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", line, err)
		}
		found = append(found, orders.Order{ID: snowflake.New(at), CreatedAt: at, Webhook: true})
	}
	return found, scanner.Err()
}

type dirResponder struct {
	dir string
}

func (d dirResponder) Send(ctx context.Context, content string, files ...*discord.File) error {
	if content != "" {
		fmt.Println(content)
	}
	for _, file := range files {
		out, err := os.Create(filepath.Join(d.dir, file.Name))
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, file.Reader); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
		fmt.Println("wrote", out.Name())
	}
	return nil
}

func main() {
	flag.Parse()
	util.SetupLogger(*debug)

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		slog.Error("Error loading timezone", slog.Any("err", err))
		os.Exit(1)
	}

	pipeline := &analyzecommand.Pipeline{
		Fetcher:   fileFetcher{path: *input},
		Renderer:  charts.NewRenderer(charts.ChromeSnapshotter{}, *label),
		OpenStore: analyzecommand.DuckDBStore(*debug),
		Location:  loc,
		Label:     *label,
	}

	if err := pipeline.Run(context.Background(), dirResponder{dir: *output}); err != nil {
		slog.Error("Error rendering charts", slog.Any("err", err))
		os.Exit(1)
	}
}
