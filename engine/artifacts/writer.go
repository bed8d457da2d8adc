package artifacts

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/metadata"
)

/**
 * @brief Materializes one asset as a file. Implementations must be safe
 * to call concurrently for distinct paths.
 */
type Writer interface {
	Write(obj assets.Object, path string) error
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(obj assets.Object, path string) error

func (f WriterFunc) Write(obj assets.Object, path string) error { return f(obj, path) }

/** @brief Encodes a mesh or animation. The real encoders live outside this repository. */
type Encoder func(w io.Writer, obj assets.Object, converted *assets.ConvertedMesh) error

/** @brief A magic number indicating the file as an anima binary file. */
const ResourceMagic uint32 = 0xdaaaadd1

const ResourceVersion uint8 = 1

/** @brief The header data for binary resource types. */
type ResourceHeader struct {
	MagicNumber  uint32
	ResourceType uint8
	Version      uint8
	Reserved     uint16
}

// FileWriter is the default Writer: textures are encoded with the configured
// image format, meshes and animations go through Encoder.
type FileWriter struct {
	archive     assets.Archive
	imageFormat metadata.ImageFormat
	encoder     Encoder
}

func NewFileWriter(archive assets.Archive, imageFormat metadata.ImageFormat, encoder Encoder) *FileWriter {
	if encoder == nil {
		encoder = HeaderEncoder
	}
	return &FileWriter{archive: archive, imageFormat: imageFormat, encoder: encoder}
}

// Write encodes obj into a temporary file next to path and renames it into
// place, so a path that exists always holds a complete artifact.
func (fw *FileWriter) Write(obj assets.Object, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := fw.encode(bw, obj); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (fw *FileWriter) encode(w io.Writer, obj assets.Object) error {
	switch o := obj.(type) {
	case *assets.Texture:
		return fw.encodeTexture(w, o)
	case *assets.SkeletalMesh, *assets.StaticMesh:
		converted, err := fw.archive.Convert(obj)
		if err != nil {
			return err
		}
		return fw.encoder(w, obj, converted)
	case *assets.Animation:
		return fw.encoder(w, obj, nil)
	default:
		return fmt.Errorf("%s is a %s: %w", obj.Path(), obj.Kind(), core.ErrUnsupportedFormat)
	}
}

func (fw *FileWriter) encodeTexture(w io.Writer, texture *assets.Texture) error {
	if texture.Image == nil {
		return fmt.Errorf("texture %s has no image data", texture.Path())
	}
	switch fw.imageFormat {
	case metadata.ImageFormatPNG:
		return png.Encode(w, toNRGBA(texture.Image))
	case metadata.ImageFormatTGA:
		return fmt.Errorf("TARGA (.tga) export not currently supported: %w", core.ErrUnsupportedFormat)
	default:
		return fmt.Errorf("image format %s: %w", fw.imageFormat, core.ErrUnsupportedFormat)
	}
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

// HeaderEncoder writes the anima resource header followed by the LOD count
// and the section count of every LOD. Animations carry only the header.
func HeaderEncoder(w io.Writer, obj assets.Object, converted *assets.ConvertedMesh) error {
	header := ResourceHeader{
		MagicNumber:  ResourceMagic,
		ResourceType: uint8(obj.Kind()),
		Version:      ResourceVersion,
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	if converted == nil {
		return nil
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(converted.LODs))); err != nil {
		return err
	}
	for _, lod := range converted.LODs {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(lod.Sections))); err != nil {
			return err
		}
	}
	return nil
}

// ReadHeader decodes the resource header at the start of r.
func ReadHeader(r io.Reader) (ResourceHeader, error) {
	var header ResourceHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return header, err
	}
	if header.MagicNumber != ResourceMagic {
		return header, fmt.Errorf("bad resource magic 0x%x", header.MagicNumber)
	}
	return header, nil
}
