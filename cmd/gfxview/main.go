// gfxview previews Game Boy 2bpp tile data (or any PNG/BMP image converted
// on the fly) in a window, rendered with the classic DMG shades.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/spf13/cobra"

	"github.com/vulcandth/rgbds/pkg/gfx"
)

const tilesPerRow = 16

type Game struct {
	data     []byte
	tilesImg *ebiten.Image // reused tile sheet canvas
	scale    int
	dirty    bool
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) && g.scale < 8 {
		g.scale++
		g.dirty = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) && g.scale > 1 {
		g.scale--
		g.dirty = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.tilesImg == nil || g.dirty {
		sheet, err := gfx.TilesToImage(g.data, tilesPerRow, gfx.DMGPalette)
		if err != nil {
			return
		}
		g.tilesImg = ebiten.NewImageFromImage(sheet)
		g.dirty = false
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.tilesImg, op)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	rows := (len(g.data)/gfx.TileBytes + tilesPerRow - 1) / tilesPerRow
	if rows < 1 {
		rows = 1
	}
	return tilesPerRow * gfx.TileSize * g.scale, rows * gfx.TileSize * g.scale
}

func loadTiles(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".bmp":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, err := gfx.DecodeImage(f)
		if err != nil {
			return nil, err
		}
		return gfx.ConvertTiles(img)
	default:
		return os.ReadFile(path)
	}
}

var dedup bool

var rootCmd = &cobra.Command{
	Use:   "gfxview <file>",
	Short: "Preview 2bpp tile data or a convertible image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := loadTiles(args[0])
		if err != nil {
			return err
		}
		if len(data) == 0 || len(data)%gfx.TileBytes != 0 {
			return fmt.Errorf("%s does not hold whole 2bpp tiles", args[0])
		}
		if dedup {
			data, _, err = gfx.Deduplicate(data)
			if err != nil {
				return err
			}
		}

		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
		ebiten.SetWindowSize(tilesPerRow*gfx.TileSize*3, 3*gfx.TileSize*8)
		ebiten.SetWindowTitle("gfxview - " + filepath.Base(args[0]))

		return ebiten.RunGame(&Game{data: data, scale: 3})
	},
}

func main() {
	rootCmd.Flags().BoolVarP(&dedup, "unique", "u", false, "deduplicate tiles before display")
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
