package task

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naglis/aeneas-sub000/config"
	"github.com/naglis/aeneas-sub000/logging"
	"github.com/naglis/aeneas-sub000/syncmap"
	"github.com/naglis/aeneas-sub000/textmodel"
	"github.com/naglis/aeneas-sub000/timeval"
	"github.com/naglis/aeneas-sub000/tts"
)

// writeToneWAV writes a mono 16-bit WAV carrying a steady tone for its
// entire length, so every fragment's region reads as speech under the
// default VAD threshold.
func writeToneWAV(t *testing.T, sampleRate int, seconds float64) string {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "task-test-*.wav")
	require.NoError(t, err)
	defer tmp.Close()

	n := int(seconds * float64(sampleRate))
	data := make([]int, n)
	for i := range data {
		data[i] = int(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}

	enc := wav.NewEncoder(tmp, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return tmp.Name()
}

func textFrag(id, text string) *textmodel.TextFragment {
	return &textmodel.TextFragment{Identifier: id, Lines: []string{text}}
}

func TestRunProducesHeadRegularTailTree(t *testing.T) {
	cfg := config.Default()
	cfg.SampleRate = 16000
	audioPath := writeToneWAV(t, cfg.SampleRate, 6.0)

	synth := tts.NewFakeSynthesizer(cfg.SampleRate)
	exec := NewExecutor(cfg, logging.Nop, synth)

	fragments := []*textmodel.TextFragment{
		textFrag("f1", "hello there"),
		textFrag("f2", "general kenobi"),
	}

	tree, err := exec.Run(context.Background(), audioPath, fragments, Configuration{})
	require.NoError(t, err)
	require.NotNil(t, tree)

	root := tree.Fragment(syncmap.RootIndex)
	assert.True(t, root.Interval.Begin.IsZero())

	children := tree.Children(syncmap.RootIndex)
	require.Len(t, children, 4)
	assert.Equal(t, syncmap.Head, tree.Fragment(children[0]).Type)
	assert.Equal(t, syncmap.Regular, tree.Fragment(children[1]).Type)
	assert.Equal(t, syncmap.Regular, tree.Fragment(children[2]).Type)
	assert.Equal(t, syncmap.Tail, tree.Fragment(children[3]).Type)
}

func TestRunRejectsEmptyFragmentList(t *testing.T) {
	cfg := config.Default()
	cfg.SampleRate = 16000
	audioPath := writeToneWAV(t, cfg.SampleRate, 2.0)

	synth := tts.NewFakeSynthesizer(cfg.SampleRate)
	exec := NewExecutor(cfg, logging.Nop, synth)

	_, err := exec.Run(context.Background(), audioPath, nil, Configuration{})
	assert.Error(t, err)
}

func TestRunHonorsExplicitHeadAndTail(t *testing.T) {
	cfg := config.Default()
	cfg.SampleRate = 16000
	audioPath := writeToneWAV(t, cfg.SampleRate, 8.0)

	synth := tts.NewFakeSynthesizer(cfg.SampleRate)
	exec := NewExecutor(cfg, logging.Nop, synth)

	fragments := []*textmodel.TextFragment{textFrag("f1", "only fragment")}

	head := timeval.New(1.0)
	tail := timeval.New(1.0)
	tree, err := exec.Run(context.Background(), audioPath, fragments, Configuration{
		ExplicitHead: &head,
		ExplicitTail: &tail,
	})
	require.NoError(t, err)
	require.NotNil(t, tree)

	children := tree.Children(syncmap.RootIndex)
	require.Len(t, children, 3)
	assert.True(t, tree.Fragment(children[0]).Interval.End.Eq(head), "HEAD ends where the explicit head ends")
	assert.True(t, tree.Fragment(children[2]).Interval.Length().Eq(tail), "TAIL spans the explicit tail")
}

func buildThreeLevelTree() *textmodel.Tree {
	tree := textmodel.NewTree(&textmodel.TextFragment{Identifier: "root"})
	para := tree.AddChild(textmodel.RootIndex, textFrag("p1", "one paragraph"))
	sent := tree.AddChild(para, textFrag("s1", "one sentence here"))
	tree.AddChild(sent, textFrag("w1", "one"))
	tree.AddChild(sent, textFrag("w2", "sentence"))
	tree.AddChild(sent, textFrag("w3", "here"))
	return tree
}

func TestRunMultiLevelWalksThreeLevels(t *testing.T) {
	cfg := config.Default()
	cfg.SampleRate = 16000
	audioPath := writeToneWAV(t, cfg.SampleRate, 6.0)

	synth := tts.NewFakeSynthesizer(cfg.SampleRate)
	exec := NewExecutor(cfg, logging.Nop, synth)

	levels := LevelConfigs{cfg, cfg, cfg}
	root := buildThreeLevelTree()

	tree, err := exec.RunMultiLevel(context.Background(), audioPath, levels, root, Configuration{})
	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.True(t, tree.LeavesAreConsistent(syncmap.RootIndex))
}

func TestRunMultiLevelHandlesSingleChildNodeTrivially(t *testing.T) {
	cfg := config.Default()
	cfg.SampleRate = 16000
	audioPath := writeToneWAV(t, cfg.SampleRate, 4.0)

	synth := tts.NewFakeSynthesizer(cfg.SampleRate)
	exec := NewExecutor(cfg, logging.Nop, synth)

	tree := textmodel.NewTree(&textmodel.TextFragment{Identifier: "root"})
	para := tree.AddChild(textmodel.RootIndex, textFrag("p1", "lone paragraph"))
	sent := tree.AddChild(para, textFrag("s1", "lone sentence"))
	tree.AddChild(sent, textFrag("w1", "word"))

	levels := LevelConfigs{cfg, cfg, cfg}
	result, err := exec.RunMultiLevel(context.Background(), audioPath, levels, tree, Configuration{})
	require.NoError(t, err)
	require.NotNil(t, result)
}
