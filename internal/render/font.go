package render

import (
	"image"
	"image/color"
	"strconv"
)

// digitPatterns contains 3x5 pixel patterns for digits 0-9.
// Each digit is five rows of 3 bits.
var digitPatterns = [10][5]uint8{
	{0b111, 0b101, 0b101, 0b101, 0b111}, // 0
	{0b010, 0b110, 0b010, 0b010, 0b111}, // 1
	{0b111, 0b001, 0b111, 0b100, 0b111}, // 2
	{0b111, 0b001, 0b111, 0b001, 0b111}, // 3
	{0b101, 0b101, 0b111, 0b001, 0b001}, // 4
	{0b111, 0b100, 0b111, 0b001, 0b111}, // 5
	{0b111, 0b100, 0b111, 0b101, 0b111}, // 6
	{0b111, 0b001, 0b001, 0b001, 0b001}, // 7
	{0b111, 0b101, 0b111, 0b101, 0b111}, // 8
	{0b111, 0b101, 0b111, 0b001, 0b111}, // 9
}

const (
	glyphWidth  = 3
	glyphHeight = 5
	glyphScale  = 2
)

var labelColor = color.RGBA{A: 255} // black

// drawNumber draws a vertex label at (x, y) using the 3x5 digit font,
// doubled to 6x10 for legibility against the marker.
func drawNumber(out *image.RGBA, number, x, y int) {
	if number < 0 {
		number = -number
	}
	for _, ch := range strconv.Itoa(number) {
		pattern := digitPatterns[ch-'0']
		for row := 0; row < glyphHeight; row++ {
			bits := pattern[row]
			for col := 0; col < glyphWidth; col++ {
				if bits&(1<<(glyphWidth-1-col)) == 0 {
					continue
				}
				for dy := 0; dy < glyphScale; dy++ {
					for dx := 0; dx < glyphScale; dx++ {
						blendPixel(out, x+col*glyphScale+dx, y+row*glyphScale+dy, labelColor, 1.0)
					}
				}
			}
		}
		x += (glyphWidth + 1) * glyphScale
	}
}
