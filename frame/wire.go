package frame

import (
	"context"
	"time"

	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/protocol"
)

const maxRowWidth = 24

// setFrameData ships a composed image to hardware, splitting wide rows
// and threading remaining_packets so the device knows when the batch
// ends. Per-model key fixups are applied before bytes are shipped; the
// hardware entry's row offsets are not applied.
func (f *Frame) setFrameData(ctx context.Context, img [][]RGB8, frameID byte) error {
	if f.Height == 1 {
		row := applyRowFixups(img[0], f.hw)
		width := len(row)
		if width > maxRowWidth {
			width = maxRowWidth
		}
		args := make([]byte, 0, 2+3*width)
		args = append(args, 0x00, byte(width))
		for c := 0; c < width; c++ {
			args = append(args, row[c].R, row[c].G, row[c].B)
		}
		_, err := f.runner.RunCommand(ctx, protocol.ClassStandardFX, 0x0C, args, 0x80, 0, 0)
		return err
	}

	tid := byte(0xFF)
	if f.hw != nil && f.hw.Quirks.Has(hardware.QuirkCustomFrame80) {
		tid = 0x80
	}

	for row := 0; row < f.Height; row++ {
		pixels := applyRowFixups(img[row], f.hw)
		width := len(pixels)

		if width <= maxRowWidth {
			remaining := uint16(f.Height - row - 1)
			if err := f.sendRow(ctx, frameID, byte(row), 0, byte(width-1), pixels, tid, remaining); err != nil {
				return err
			}
			if row < f.Height-1 {
				time.Sleep(time.Millisecond)
			}
			continue
		}

		mid := width / 2
		remainingFirst := uint16((f.Height-row-1)*2 + 1)
		remainingSecond := remainingFirst - 1

		if err := f.sendRow(ctx, frameID, byte(row), 0, byte(mid-1), pixels[:mid], tid, remainingFirst); err != nil {
			return err
		}
		if err := f.sendRow(ctx, frameID, byte(row), byte(mid), byte(width-1), pixels[mid:], tid, remainingSecond); err != nil {
			return err
		}

		if row < f.Height-1 {
			time.Sleep(time.Millisecond)
		}
	}
	return nil
}

func (f *Frame) sendRow(ctx context.Context, frameID, row, startCol, endCol byte, pixels []RGB8, tid byte, remaining uint16) error {
	args := make([]byte, 0, 4+3*len(pixels))
	args = append(args, frameID, row, startCol, endCol)
	for _, p := range pixels {
		args = append(args, p.R, p.G, p.B)
	}
	_, err := f.runner.RunCommand(ctx, protocol.ClassStandardFX, 0x0B, args, tid, 0, remaining)
	return err
}

// applyRowFixups applies a model's column insert/delete/copy operations
// to one physical row before it is shipped. It adds no left padding.
func applyRowFixups(row []RGB8, hw *hardware.Entry) []RGB8 {
	if hw == nil {
		return row
	}

	out := append([]RGB8(nil), row...)

	if hw.KeyFixups != nil {
		for _, ins := range hw.KeyFixups.Insert {
			if ins.Index < 0 || ins.Index > len(out) {
				continue
			}
			out = append(out[:ins.Index], append([]RGB8{{}}, out[ins.Index:]...)...)
		}
		if len(hw.KeyFixups.Delete) > 0 {
			del := make(map[int]struct{}, len(hw.KeyFixups.Delete))
			for _, i := range hw.KeyFixups.Delete {
				del[i] = struct{}{}
			}
			filtered := out[:0:0]
			for i, px := range out {
				if _, skip := del[i]; !skip {
					filtered = append(filtered, px)
				}
			}
			out = filtered
		}
		for _, cp := range hw.KeyFixups.Copy {
			if cp.From >= 0 && cp.From < len(out) && cp.To >= 0 && cp.To < len(out) {
				out[cp.To] = out[cp.From]
			}
		}
	}

	return out
}
