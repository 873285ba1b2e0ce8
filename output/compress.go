package output

import (
	"io"
	"os"
	"path/filepath"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"

	"github.com/coaly-project/coaly/config"
)

// compressFile re-encodes src into dst with the given algorithm. The
// output is written to a temporary file first, so an interrupted encode
// never leaves a partial archive under its final name.
func compressFile(src, dst string, algo config.Compression) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + tmpSuffix
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	err = encode(out, in, filepath.Base(src), algo)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func encode(out io.Writer, in io.Reader, entryName string, algo config.Compression) error {
	switch algo {
	case config.CompressionGzip:
		w := gzip.NewWriter(out)
		if _, err := io.Copy(w, in); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	case config.CompressionBzip2:
		w, err := bzip2.NewWriter(out, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, in); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	case config.CompressionLzma:
		w, err := xz.NewWriter(out)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, in); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	case config.CompressionZip:
		zw := zip.NewWriter(out)
		entry, err := zw.Create(entryName)
		if err != nil {
			zw.Close()
			return err
		}
		if _, err := io.Copy(entry, in); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}
	return nil
}
