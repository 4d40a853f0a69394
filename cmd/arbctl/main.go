// Command arbctl is a minimal demo CLI wiring Arboretum's pieces together:
// open a disk-backed metric tree of 2-D points, insert from stdin, then run
// a range or k-NN query against it. Not a product surface — a worked
// example of the library's construction order.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/arboretum-go/arboretum/config"
	"github.com/arboretum-go/arboretum/metric"
	"github.com/arboretum-go/arboretum/object"
	"github.com/arboretum-go/arboretum/pagemgr"
	"github.com/arboretum-go/arboretum/resultset"
	"github.com/arboretum-go/arboretum/tree"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "arbctl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("arbctl", flag.ExitOnError)
	store := fs.String("store", "arbctl.tree", "path to the disk-backed store file")
	mode := fs.String("mode", "range", "query mode: range or knn")
	x := fs.Float64("x", 0, "query point x")
	y := fs.Float64("y", 0, "query point y")
	radius := fs.Float64("r", 1, "range query radius")
	k := fs.Int("k", 5, "k-NN neighbour count")
	verbose := fs.Bool("v", false, "enable structured logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var log *zap.Logger
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		log = l
		defer log.Sync() //nolint:errcheck
	}

	pm, err := pagemgr.OpenDisk(*store, 4096, 0, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer pm.Close()

	cfg := config.IndexConfig{
		PageSize:     4096,
		MinOccupancy: 4,
		Promotion:    config.MinMaxPromotion,
		Choice:       config.MinOccupancy,
	}
	t, err := tree.Open(pm, cfg, metric.Euclidean, object.PointFactory(2), log)
	if err != nil {
		return fmt.Errorf("open tree: %w", err)
	}

	if err := loadPoints(t); err != nil {
		return fmt.Errorf("load points from stdin: %w", err)
	}

	q := object.Point{*x, *y}
	switch *mode {
	case "range":
		rs, err := t.RangeQuery(q, *radius)
		if err != nil {
			return err
		}
		printResults(rs.Pairs())
	case "knn":
		rs, err := t.Nearest(q, *k)
		if err != nil {
			return err
		}
		printResults(rs.Pairs())
	default:
		return fmt.Errorf("unknown mode %q: want range or knn", *mode)
	}
	return nil
}

// loadPoints reads "x y" pairs from stdin, one per line, and inserts each
// into t. An empty stdin (nothing piped in) is not an error: querying a
// store built by a previous invocation is the common case.
func loadPoints(t *tree.MetricTree) error {
	info, err := os.Stdin.Stat()
	if err != nil || (info.Mode()&os.ModeCharDevice) != 0 {
		return nil
	}
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return fmt.Errorf("malformed point line %q: want \"x y\"", line)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return err
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return err
		}
		if err := t.Insert(object.Point{x, y}); err != nil {
			return err
		}
	}
	return sc.Err()
}

func printResults(pairs []resultset.Pair) {
	for _, p := range pairs {
		fmt.Printf("%v\t%.6f\n", p.Object, p.Distance)
	}
}
