package export

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/annel0/terragen/internal/voxel"
	"github.com/klauspost/compress/zstd"
)

// zstdMagic: первые байты кадра zstd
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// WriteText пишет воксели построчно в формате просмотрщика: x,y,z,color.
// При compress поток оборачивается в zstd.
func WriteText(w io.Writer, voxels []voxel.Voxel, compress bool) error {
	var enc *zstd.Encoder
	if compress {
		var err error
		enc, err = zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		w = enc
	}

	if err := writeLines(w, voxels); err != nil {
		if enc != nil {
			enc.Close()
		}
		return err
	}

	if enc != nil {
		return enc.Close()
	}
	return nil
}

func writeLines(w io.Writer, voxels []voxel.Voxel) error {
	bw := bufio.NewWriter(w)
	for _, v := range voxels {
		line := strconv.Itoa(v.X) + "," +
			strconv.FormatFloat(v.Y, 'f', -1, 64) + "," +
			strconv.Itoa(v.Z) + "," + v.Color + "\n"
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadText разбирает формат x,y,z,color обратно в воксели (без типа материала).
// Сжатый zstd поток распознаётся автоматически.
func ReadText(r io.Reader) ([]voxel.Voxel, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, err
	}

	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		src = dec
	}

	var voxels []voxel.Voxel
	scanner := bufio.NewScanner(src)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		v, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		voxels = append(voxels, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return voxels, nil
}

// WriteFile сохраняет воксели в файл path
func WriteFile(path string, voxels []voxel.Voxel, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteText(f, voxels, compress); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadFile читает воксели из файла path
func ReadFile(path string) ([]voxel.Voxel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadText(f)
}

func parseLine(line string) (voxel.Voxel, error) {
	parts := strings.SplitN(line, ",", 4)
	if len(parts) != 4 {
		return voxel.Voxel{}, fmt.Errorf("expected x,y,z,color, got %q", line)
	}

	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return voxel.Voxel{}, fmt.Errorf("bad x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return voxel.Voxel{}, fmt.Errorf("bad y: %w", err)
	}
	z, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return voxel.Voxel{}, fmt.Errorf("bad z: %w", err)
	}

	return voxel.Voxel{X: x, Y: y, Z: z, Color: strings.TrimSpace(parts[3])}, nil
}
