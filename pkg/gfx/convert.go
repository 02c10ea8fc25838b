// Package gfx converts images into the 2bpp planar tile format the Game Boy
// video hardware consumes, and back for previewing. Each 8x8 tile is 16
// bytes: per row, one byte of low bits and one byte of high bits, leftmost
// pixel in the most significant bit.
package gfx

import (
	"fmt"
	"image"
	"image/color"
	"io"

	_ "image/png" // PNG input

	_ "golang.org/x/image/bmp" // BMP input
)

const (
	// TileSize is the pixel width and height of one tile.
	TileSize = 8
	// TileBytes is the byte length of one encoded tile.
	TileBytes = 16
)

// DecodeImage reads a PNG or BMP image.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// shadeOf quantises a color to a 2-bit shade: 3 is darkest, 0 lightest,
// matching how the hardware palettes index the DMG shades.
func shadeOf(c color.Color) uint8 {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return 0
	}
	// Rec. 601 luma, in 16-bit channel space
	luma := (299*uint64(r) + 587*uint64(g) + 114*uint64(b)) / 1000
	return uint8(3 - luma*4/0x10000)
}

// ConvertTiles slices img into 8x8 tiles, row-major, and encodes each as
// 2bpp planar data. The image dimensions must be multiples of 8.
func ConvertTiles(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width%TileSize != 0 || height%TileSize != 0 {
		return nil, fmt.Errorf("image dimensions %dx%d are not multiples of %d", width, height, TileSize)
	}

	out := make([]byte, 0, width*height/(TileSize*TileSize)*TileBytes)
	for tileY := 0; tileY < height; tileY += TileSize {
		for tileX := 0; tileX < width; tileX += TileSize {
			for y := 0; y < TileSize; y++ {
				var lower, upper byte
				for x := 0; x < TileSize; x++ {
					shade := shadeOf(img.At(bounds.Min.X+tileX+x, bounds.Min.Y+tileY+y))
					lower = lower<<1 | shade&1
					upper = upper<<1 | shade>>1
				}
				out = append(out, lower, upper)
			}
		}
	}
	return out, nil
}

// EncodeRow packs one row of up to 8 pixel values (0-3) into the 16-bit
// word the assembler's backquote constants produce: high bitplane in the
// upper byte, low bitplane in the lower byte.
func EncodeRow(pixels []uint8) uint16 {
	var lower, upper uint16
	for _, pixel := range pixels[:min(len(pixels), 8)] {
		lower = lower<<1 | uint16(pixel&1)
		upper = upper<<1 | uint16(pixel>>1)
	}
	return upper<<8 | lower
}

// Deduplicate removes repeated tiles from 2bpp data, returning the unique
// tile data and, for each input tile, the index of its unique tile.
func Deduplicate(data []byte) ([]byte, []int, error) {
	if len(data)%TileBytes != 0 {
		return nil, nil, fmt.Errorf("2bpp data length %d is not a multiple of %d", len(data), TileBytes)
	}
	seen := make(map[[TileBytes]byte]int)
	var unique []byte
	indexes := make([]int, 0, len(data)/TileBytes)
	for off := 0; off < len(data); off += TileBytes {
		var tile [TileBytes]byte
		copy(tile[:], data[off:off+TileBytes])
		idx, ok := seen[tile]
		if !ok {
			idx = len(unique) / TileBytes
			seen[tile] = idx
			unique = append(unique, tile[:]...)
		}
		indexes = append(indexes, idx)
	}
	return unique, indexes, nil
}

// DMGPalette is the classic green-tinted shade ramp, lightest first.
var DMGPalette = [4]color.NRGBA{
	{R: 0xE0, G: 0xF8, B: 0xD0, A: 0xFF},
	{R: 0x88, G: 0xC0, B: 0x70, A: 0xFF},
	{R: 0x34, G: 0x68, B: 0x56, A: 0xFF},
	{R: 0x08, G: 0x18, B: 0x20, A: 0xFF},
}

// TilesToImage renders 2bpp tile data as an image, tilesPerRow tiles wide,
// for previewing.
func TilesToImage(data []byte, tilesPerRow int, palette [4]color.NRGBA) (*image.NRGBA, error) {
	if len(data)%TileBytes != 0 {
		return nil, fmt.Errorf("2bpp data length %d is not a multiple of %d", len(data), TileBytes)
	}
	if tilesPerRow < 1 {
		tilesPerRow = 1
	}
	nbTiles := len(data) / TileBytes
	rows := (nbTiles + tilesPerRow - 1) / tilesPerRow
	img := image.NewNRGBA(image.Rect(0, 0, tilesPerRow*TileSize, rows*TileSize))

	for tile := 0; tile < nbTiles; tile++ {
		baseX := tile % tilesPerRow * TileSize
		baseY := tile / tilesPerRow * TileSize
		for y := 0; y < TileSize; y++ {
			lower := data[tile*TileBytes+y*2]
			upper := data[tile*TileBytes+y*2+1]
			for x := 0; x < TileSize; x++ {
				bit := uint(7 - x)
				shade := (upper>>bit&1)<<1 | lower>>bit&1
				img.SetNRGBA(baseX+x, baseY+y, palette[shade])
			}
		}
	}
	return img, nil
}
