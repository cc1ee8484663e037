// parses a `go test -bench` log for modelcache's own benchmarks and prints
// both the raw per-iteration values (CSV, one benchmark per line) and a
// derived eviction-overhead summary: how much slower BenchmarkPutMiss gets
// once eviction pressure forces make_room to run on every Put.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"golang.org/x/perf/benchstat"
)

const defaultBenchLog = ".modelcache_bench_log"

const (
	putMissBenchmark     = "BenchmarkPutMiss"
	putEvictionBenchmark = "BenchmarkPutUnderEvictionPressure"
)

func main() {
	path := defaultBenchLog
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	c := &benchstat.Collection{
		Alpha:     0.05,
		DeltaTest: benchstat.UTest,
		Order:     benchstat.ByName,
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := c.AddFile(path, f); err != nil {
		log.Fatal(err)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	means := make(map[string]float64)
	var scratch []byte
	for k, v := range c.Metrics {
		w.WriteString(k.Benchmark)
		for _, val := range v.Values {
			w.WriteByte(',')
			scratch = strconv.AppendFloat(scratch[:0], val, 'f', 0, 64)
			w.Write(scratch)
		}
		w.WriteByte('\n')

		// benchstat names carry no "Benchmark" prefix and keep the
		// GOMAXPROCS suffix; normalize before matching, and compare time only.
		name := strings.TrimPrefix(k.Benchmark, "Benchmark")
		if i := strings.LastIndexByte(name, '-'); i >= 0 {
			if _, err := strconv.Atoi(name[i+1:]); err == nil {
				name = name[:i]
			}
		}
		if k.Unit == "ns/op" {
			means["Benchmark"+name] = meanOf(v.Values)
		}
	}

	miss, haveMiss := means[putMissBenchmark]
	eviction, haveEviction := means[putEvictionBenchmark]
	if haveMiss && haveEviction && miss > 0 {
		overheadPct := (eviction - miss) / miss * 100
		fmt.Fprintf(w, "eviction_overhead_pct,%.2f\n", overheadPct)
	}
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
