package rawls

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/rawls-accum/pkg/radiance"
)

func testBuffer(t *testing.T) *radiance.Buffer {
	t.Helper()
	b, err := radiance.New(3, 2, 3, 42)
	require.NoError(t, err)
	for i := range b.Pix {
		b.Pix[i] = float64(i) * 0.5 // exactly representable as float32
	}
	return b
}

func TestEncodeDecode(t *testing.T) {
	for _, compress := range []bool{false, true} {
		want := testBuffer(t)

		var out bytes.Buffer
		require.NoError(t, Encode(&out, want, compress))

		got, err := Decode(&out)
		require.NoError(t, err, "compress=%v", compress)

		assert.Equal(t, 3, got.Width())
		assert.Equal(t, 2, got.Height())
		assert.Equal(t, 3, got.Channels())
		assert.Equal(t, 42, got.Samples)
		assert.Equal(t, want.Pix, got.Pix)
	}
}

func TestEncode_Header(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Encode(&out, testBuffer(t), false))

	assert.True(t, strings.HasPrefix(out.String(), "IHDR\n3 2 3\nCOMMENTS\n#Samples 42\nDATA\nraw 72\n"))
}

func TestDecode_ExtraCommentsAndDefaultSamples(t *testing.T) {
	in := "IHDR\n1 1 1\nCOMMENTS\n#Integrator path\n#Camera perspective\nDATA\nraw 4\n\x00\x00\x80\x3f"

	got, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Samples)
	assert.Equal(t, []float64{1.0}, got.Pix)
}

func TestDecode_Truncated(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Encode(&out, testBuffer(t), false))
	data := out.Bytes()

	_, err := Decode(bytes.NewReader(data[:len(data)-5]))
	assert.ErrorIs(t, err, ErrTruncated)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = Decode(bytes.NewReader(data[:8]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecode_Malformed(t *testing.T) {
	for name, in := range map[string]string{
		"bad magic":       "PNG\n",
		"bad dims":        "IHDR\nwide tall\n",
		"zero dims":       "IHDR\n0 2 3\nCOMMENTS\nDATA\nraw 0\n",
		"no comments":     "IHDR\n1 1 1\nDATA\n",
		"stray line":      "IHDR\n1 1 1\nCOMMENTS\nSamples 4\n",
		"bad samples":     "IHDR\n1 1 1\nCOMMENTS\n#Samples many\nDATA\n",
		"bad encoding":    "IHDR\n1 1 1\nCOMMENTS\nDATA\nlz4 4\n\x00\x00\x00\x00",
		"wrong payload":   "IHDR\n2 1 1\nCOMMENTS\nDATA\nraw 4\n\x00\x00\x00\x00",
		"huge shape":      "IHDR\n4000000000 4000000000 3\nCOMMENTS\nDATA\nraw 16\n",
		"too wide":        "IHDR\n100000 100000 1000\nCOMMENTS\nDATA\nraw 16\n",
		"too many values": fmt.Sprintf("IHDR\n%d %d 3\nCOMMENTS\nDATA\nzstd 16\n", MaxDimension, MaxDimension),
		"huge payload":    "IHDR\n16384 16384 1\nCOMMENTS\nDATA\nraw 16\n",
	} {
		_, err := Decode(strings.NewReader(in))
		assert.Error(t, err, name)
	}
}

func TestDecode_InvalidShapeOrSamples(t *testing.T) {
	for name, in := range map[string]string{
		"zero width":       "IHDR\n0 2 3\nCOMMENTS\nDATA\nraw 0\n",
		"negative samples": "IHDR\n1 1 1\nCOMMENTS\n#Samples -3\nDATA\nraw 4\n\x00\x00\x00\x00",
	} {
		_, err := Decode(strings.NewReader(in))
		assert.ErrorIs(t, err, radiance.ErrInvalidConfiguration, name)
	}
}

func TestSaveLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "pass-0001"+Ext)
	want := testBuffer(t)

	require.NoError(t, Save(filename, want, true))

	got, err := Load(filename)
	require.NoError(t, err)
	assert.Equal(t, want.Samples, got.Samples)
	assert.Equal(t, want.Pix, got.Pix)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.rawls"))
	assert.Error(t, err)
}
