// Command scpipeline runs the analysis pipeline on a cell affinity graph
// given as a whitespace-separated edge list ("cell-i cell-j weight", one
// edge per line, symmetric entries added automatically) and prints a
// summary of every slot the enabled steps produced.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/james-bowman/sparse"

	"github.com/gilchrisn/sc-analysis-service/pkg/anndata"
	"github.com/gilchrisn/sc-analysis-service/pkg/pipeline"
)

func main() {
	var (
		affinityPath = flag.String("affinity", "", "path to the affinity edge list (required)")
		configPath   = flag.String("config", "", "optional pipeline config file")
		rep          = flag.String("rep", "pca", "representation name the affinity is stored under")
	)
	flag.Parse()

	if *affinityPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := pipeline.NewConfig()
	if *configPath != "" {
		if err := cfg.LoadFromFile(*configPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	data, err := loadAffinity(*affinityPath, *rep)
	if err != nil {
		log.Fatalf("load affinity: %v", err)
	}
	fmt.Printf("loaded %d cells from %s\n", data.NObs(), *affinityPath)

	if err := pipeline.Run(data, cfg); err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	printSummary(data)
}

// loadAffinity reads the edge list and assembles a symmetric affinity
// matrix over the cells named in it, in order of first appearance.
func loadAffinity(path, rep string) (*anndata.AnnData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	type edge struct {
		a, b int
		w    float64
	}
	var (
		names []string
		index = make(map[string]int)
		edges []edge
	)
	resolve := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		i := len(names)
		index[name] = i
		names = append(names, name)
		return i
	}

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s:%d: want \"cell cell weight\", got %q", path, line, text)
		}
		w, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad weight %q: %v", path, line, fields[2], err)
		}
		edges = append(edges, edge{resolve(fields[0]), resolve(fields[1]), w})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	data, err := anndata.New(names)
	if err != nil {
		return nil, err
	}
	dok := sparse.NewDOK(len(names), len(names))
	for _, e := range edges {
		dok.Set(e.a, e.b, e.w)
		dok.Set(e.b, e.a, e.w)
	}
	if err := data.SetAffinity(rep, dok.ToCSR()); err != nil {
		return nil, err
	}
	return data, nil
}

func printSummary(data *anndata.AnnData) {
	for _, rep := range []string{"diffmap", "diffmap_pca"} {
		if x, err := data.Embedding(rep); err == nil {
			r, c := x.Dims()
			fmt.Printf("X_%s: %d x %d\n", rep, r, c)
		}
	}
	for _, col := range []string{
		"louvain_labels", "leiden_labels",
		"spectral_louvain_labels", "spectral_leiden_labels",
	} {
		cat, ok := data.Labels(col)
		if !ok {
			continue
		}
		counts := make(map[string]int)
		for _, v := range cat.Values {
			counts[v]++
		}
		fmt.Printf("%s: %d clusters\n", col, cat.NCategories())
		for _, c := range cat.Categories {
			fmt.Printf("  %s: %d cells\n", c, counts[c])
		}
	}
	if pt, ok := data.Scalar("pseudotime"); ok {
		fmt.Printf("pseudotime: %d cells\n", len(pt))
	}
}
