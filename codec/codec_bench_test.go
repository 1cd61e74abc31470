package codec

import (
	"fmt"
	"testing"
)

type benchTable struct {
	Mode   string      `json:"mode"`
	Labels []string    `json:"labels"`
	N      int         `json:"n"`
	Data   [][]float64 `json:"data"`
}

func newBenchTable(voxels, cols int) benchTable {
	t := benchTable{Mode: "ranges", N: 40, Data: make([][]float64, voxels)}
	for j := 0; j < cols; j++ {
		t.Labels = append(t.Labels, fmt.Sprintf("[%d.0,%d.5]", j, j))
	}
	for i := range t.Data {
		row := make([]float64, cols)
		for j := range row {
			row[j] = float64((i+j)%7+1) / float64(40+cols)
		}
		t.Data[i] = row
	}
	return t
}

func benchmarkCodecMarshal(b *testing.B, c Codec, v any) {
	b.Helper()
	b.ReportAllocs()

	warm, err := c.Marshal(v)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(warm)))

	var sink []byte
	b.ResetTimer()
	for b.Loop() {
		out, err := c.Marshal(v)
		if err != nil {
			b.Fatal(err)
		}
		sink = out
	}
	_ = sink
}

func benchmarkCodecUnmarshal[T any](b *testing.B, c Codec, data []byte, dst *T) {
	b.Helper()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	var v T
	b.ResetTimer()
	for b.Loop() {
		if err := c.Unmarshal(data, &v); err != nil {
			b.Fatal(err)
		}
	}
	if dst != nil {
		*dst = v
	}
}

func benchCodecs() []Codec {
	return []Codec{
		JSON{},
		GoJSON{},
		Compressed{Inner: GoJSON{}, Type: CompressionLZ4},
		Compressed{Inner: GoJSON{}, Type: CompressionZSTD},
	}
}

func BenchmarkCodec_Marshal_Likelihood(b *testing.B) {
	table := newBenchTable(2048, 8)
	for _, c := range benchCodecs() {
		b.Run(c.Name(), func(b *testing.B) { benchmarkCodecMarshal(b, c, table) })
	}
}

func BenchmarkCodec_Unmarshal_Likelihood(b *testing.B) {
	table := newBenchTable(2048, 8)
	for _, c := range benchCodecs() {
		data := MustMarshal(c, table)
		b.Run(c.Name(), func(b *testing.B) {
			var sink benchTable
			benchmarkCodecUnmarshal(b, c, data, &sink)
			_ = sink
		})
	}
}
