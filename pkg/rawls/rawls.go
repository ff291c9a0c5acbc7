// Package rawls reads and writes accumulation buffers in the .rawls
// format: a short text header, then the pixel data as little-endian
// float32s, optionally zstd compressed.
//
//	IHDR
//	<width> <height> <channels>
//	COMMENTS
//	#Samples <n>
//	#<any other comment lines, ignored>
//	DATA
//	<raw|zstd> <payload bytes>
//	<payload>
package rawls

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/abworrall/rawls-accum/pkg/radiance"
)

const Ext = ".rawls"

const (
	encodingRaw  = "raw"
	encodingZstd = "zstd"
)

// Limits on the header's shape, checked before anything is allocated.
const (
	MaxDimension = 1 << 16
	MaxChannels  = 64
	MaxValues    = 1 << 28 // 2GiB of float64s
)

// ErrTruncated means the file ended before all the pixel data arrived;
// typically it is still being written.
var ErrTruncated = fmt.Errorf("rawls: truncated payload: %w", io.ErrUnexpectedEOF)

// Load reads a .rawls file from disk.
func Load(filename string) (*radiance.Buffer, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r '%s': %w", filename, err)
	}
	defer f.Close()

	buf, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode '%s': %w", filename, err)
	}
	return buf, nil
}

// Save writes buf to filename, replacing anything already there.
func Save(filename string, buf *radiance.Buffer, compress bool) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %w", filename, err)
	}

	if err := Encode(f, buf, compress); err != nil {
		f.Close()
		return fmt.Errorf("encode '%s': %w", filename, err)
	}
	return f.Close()
}

func Decode(r io.Reader) (*radiance.Buffer, error) {
	br := bufio.NewReader(r)

	if err := expectLine(br, "IHDR"); err != nil {
		return nil, err
	}

	line, err := readLine(br)
	if err != nil {
		return nil, err
	}
	var w, h, c int
	if n, err := fmt.Sscanf(line, "%d %d %d", &w, &h, &c); err != nil || n != 3 {
		return nil, fmt.Errorf("rawls: bad dimensions line %q", line)
	}
	if err := checkShape(w, h, c); err != nil {
		return nil, err
	}

	if err := expectLine(br, "COMMENTS"); err != nil {
		return nil, err
	}

	samples := 1 // a file with no #Samples comment holds a single pass
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, err
		}
		if line == "DATA" {
			break
		}
		if !strings.HasPrefix(line, "#") {
			return nil, fmt.Errorf("rawls: expected comment or DATA, got %q", line)
		}
		fields := strings.Fields(line[1:])
		if len(fields) == 2 && fields[0] == "Samples" {
			if samples, err = strconv.Atoi(fields[1]); err != nil {
				return nil, fmt.Errorf("rawls: bad sample count %q: %v", fields[1], err)
			}
		}
	}

	line, err = readLine(br)
	if err != nil {
		return nil, err
	}
	var encoding string
	var size int64
	if n, err := fmt.Sscanf(line, "%s %d", &encoding, &size); err != nil || n != 2 || size < 0 {
		return nil, fmt.Errorf("rawls: bad data line %q", line)
	}
	if encoding == encodingRaw {
		if want := int64(w) * int64(h) * int64(c) * 4; size != want {
			return nil, fmt.Errorf("rawls: payload is %d bytes, %dx%dx%d needs %d", size, w, h, c, want)
		}
	}

	buf, err := radiance.New(w, h, c, samples)
	if err != nil {
		return nil, fmt.Errorf("rawls: %w", err)
	}

	payload := io.LimitReader(br, size)
	switch encoding {
	case encodingRaw:
		err = readFloats(payload, buf.Pix)

	case encodingZstd:
		dec, zerr := zstd.NewReader(payload)
		if zerr != nil {
			return nil, fmt.Errorf("rawls: zstd: %v", zerr)
		}
		err = readFloats(dec, buf.Pix)
		dec.Close()

	default:
		return nil, fmt.Errorf("rawls: unknown data encoding '%s'", encoding)
	}

	if err != nil {
		return nil, err
	}
	return buf, nil
}

func Encode(w io.Writer, buf *radiance.Buffer, compress bool) error {
	payload := make([]byte, len(buf.Pix)*4)
	for i, v := range buf.Pix {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(float32(v)))
	}

	encoding := encodingRaw
	if compress {
		var zbuf bytes.Buffer
		enc, err := zstd.NewWriter(&zbuf)
		if err != nil {
			return fmt.Errorf("rawls: zstd: %v", err)
		}
		if _, err := enc.Write(payload); err != nil {
			enc.Close()
			return fmt.Errorf("rawls: zstd: %v", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("rawls: zstd: %v", err)
		}
		payload = zbuf.Bytes()
		encoding = encodingZstd
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "IHDR\n%d %d %d\n", buf.Width(), buf.Height(), buf.Channels())
	fmt.Fprintf(bw, "COMMENTS\n#Samples %d\n", buf.Samples)
	fmt.Fprintf(bw, "DATA\n%s %d\n", encoding, len(payload))
	if _, err := bw.Write(payload); err != nil {
		return err
	}
	return bw.Flush()
}

func checkShape(w, h, c int) error {
	if w <= 0 || h <= 0 || c <= 0 {
		return fmt.Errorf("rawls: %w: buffer shape %dx%dx%d", radiance.ErrInvalidConfiguration, w, h, c)
	}
	if w > MaxDimension || h > MaxDimension || c > MaxChannels || int64(w)*int64(h)*int64(c) > MaxValues {
		return fmt.Errorf("rawls: buffer shape %dx%dx%d is too big", w, h, c)
	}
	return nil
}

func readFloats(r io.Reader, dst []float64) error {
	raw := make([]byte, len(dst)*4)
	if _, err := io.ReadFull(r, raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTruncated
		}
		return fmt.Errorf("rawls: reading payload: %w", err)
	}
	for i := range dst {
		dst[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("rawls: truncated header: %w", io.ErrUnexpectedEOF)
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func expectLine(br *bufio.Reader, want string) error {
	line, err := readLine(br)
	if err != nil {
		return err
	}
	if line != want {
		return fmt.Errorf("rawls: expected %q, got %q", want, line)
	}
	return nil
}
