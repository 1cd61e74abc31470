package ontoinfer_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/hupe1980/ontoinfer"
	"github.com/hupe1980/ontoinfer/blobstore"
	"github.com/hupe1980/ontoinfer/observation"
	"github.com/hupe1980/ontoinfer/ontology"
)

const exampleRelationships = `id	parent	name
1	None	BASE
trm_memory	1	memory
trm_vision	1	vision
trm_wm	trm_memory	working memory
ds1	trm_wm	DS000001
ds2	trm_wm	DS000002
ds3	trm_memory	DS000003
ds4	trm_vision	DS000004
ds5	trm_vision;trm_memory	DS000005
`

const exampleImages = `id,v0,v1,v2
DS000001.nii.gz,2.1,1.8,-0.2
DS000002.nii.gz,2.4,2.0,0.3
DS000003.nii.gz,1.6,0.4,0.2
DS000004.nii.gz,-0.3,0.1,2.2
DS000005.nii.gz,0.2,-0.5,2.6
`

func exampleCorpus() (*ontology.Tree, *observation.Table, map[string]string) {
	rows, err := ontology.ReadTable(strings.NewReader(exampleRelationships))
	if err != nil {
		log.Fatal(err)
	}
	tree, err := ontoinfer.BuildTree(context.Background(), rows, nil)
	if err != nil {
		log.Fatal(err)
	}
	obs, err := observation.ReadCSV(strings.NewReader(exampleImages))
	if err != nil {
		log.Fatal(err)
	}
	return tree, obs, observation.Correspond(tree.CollectNames(tree.Root()), obs.IDs())
}

// Example_run partitions the corpus for every concept.
func Example_run() {
	tree, obs, corr := exampleCorpus()

	e, err := ontoinfer.New(tree, obs, corr, ontoinfer.WithStep(1))
	if err != nil {
		log.Fatal(err)
	}
	results, err := e.Run(context.Background(), nil)
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range results {
		fmt.Printf("%s in=%d out=%d\n", r.ConceptID, r.In, r.Out)
	}
	// Output:
	// trm_memory in=4 out=1
	// trm_vision in=2 out=3
	// trm_wm in=2 out=3
}

// Example_binary uses a fixed activation threshold instead of range buckets.
func Example_binary() {
	tree, obs, corr := exampleCorpus()

	e, err := ontoinfer.New(tree, obs, corr, ontoinfer.WithThreshold(1.96))
	if err != nil {
		log.Fatal(err)
	}
	results, err := e.Run(context.Background(), []string{"trm_vision"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(results[0].Name, results[0].Threshold[0].Label)
	// Output: vision 1.96
}

// Example_score scores a new image against persisted likelihood tables.
func Example_score() {
	tree, obs, corr := exampleCorpus()
	ctx := context.Background()

	e, err := ontoinfer.New(tree, obs, corr, ontoinfer.WithArtifactStore(blobstore.NewMemoryStore()))
	if err != nil {
		log.Fatal(err)
	}
	if _, err := e.Run(ctx, nil); err != nil {
		log.Fatal(err)
	}

	query, err := observation.New([]string{"query"}, [][]float64{{2.0, 1.9, 0.0}})
	if err != nil {
		log.Fatal(err)
	}
	qs, err := e.Score(ctx, query, "trm_wm")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(qs.Name, qs.Persisted)
	// Output: working memory true
}
