package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
)

const iconSize = 32

// IconPNG renders the tray icon: a dashed selection rectangle with a solid
// corner handle.
func IconPNG() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	frame := color.NRGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
	handle := color.NRGBA{R: 0xe8, G: 0x11, B: 0x23, A: 0xff}

	const lo, hi = 4, iconSize - 6
	for i := lo; i <= hi; i++ {
		if (i/3)%2 == 1 {
			continue
		}
		for w := 0; w < 2; w++ {
			img.SetNRGBA(i, lo+w, frame)
			img.SetNRGBA(i, hi-w, frame)
			img.SetNRGBA(lo+w, i, frame)
			img.SetNRGBA(hi-w, i, frame)
		}
	}
	for y := hi - 3; y <= hi+3; y++ {
		for x := hi - 3; x <= hi+3; x++ {
			img.SetNRGBA(x, y, handle)
		}
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// IconICO wraps IconPNG in a single-image ICO container, which is what the
// Windows tray expects. PNG payloads are valid in ICO files since Vista.
func IconICO() []byte {
	data := IconPNG()
	var buf bytes.Buffer
	header := struct {
		Reserved, Type, Count uint16
	}{0, 1, 1}
	entry := struct {
		Width, Height, Colors, Reserved uint8
		Planes, BitCount                uint16
		Size, Offset                    uint32
	}{iconSize, iconSize, 0, 0, 1, 32, uint32(len(data)), 6 + 16}
	_ = binary.Write(&buf, binary.LittleEndian, header)
	_ = binary.Write(&buf, binary.LittleEndian, entry)
	buf.Write(data)
	return buf.Bytes()
}
