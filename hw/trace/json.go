package trace

import (
	"fmt"
	"io"

	"github.com/go-faster/jx"

	"ebtks/hw/hwdefs"
)

// EncodeJSON writes recs as a JSON array:
//
//	[{"addr":65304,"state":"Write","ctrl":4,"data":42,"aux":0},...]
//
// state is informative only, ctrl carries the sampled lines.
func EncodeJSON(w io.Writer, recs []Record) error {
	var e jx.Encoder
	e.ArrStart()
	for _, r := range recs {
		e.ObjStart()
		e.FieldStart("addr")
		e.UInt16(r.Addr)
		e.FieldStart("state")
		e.Str(r.State().String())
		e.FieldStart("ctrl")
		e.UInt8(uint8(r.Ctrl))
		e.FieldStart("data")
		e.UInt8(r.Data)
		e.FieldStart("aux")
		e.UInt8(r.Aux)
		e.ObjEnd()
	}
	e.ArrEnd()

	if _, err := w.Write(e.Bytes()); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}

// DecodeJSON reads records written by EncodeJSON. Unknown keys are skipped.
func DecodeJSON(r io.Reader) ([]Record, error) {
	var recs []Record
	d := jx.Decode(r, 4096)
	err := d.Arr(func(d *jx.Decoder) error {
		var rec Record
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "addr":
				rec.Addr, err = d.UInt16()
			case "ctrl":
				var c uint8
				c, err = d.UInt8()
				rec.Ctrl = hwdefs.Ctrl(c)
			case "data":
				rec.Data, err = d.UInt8()
			case "aux":
				rec.Aux, err = d.UInt8()
			default:
				err = d.Skip()
			}
			return err
		})
		if err != nil {
			return err
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode trace: %w", err)
	}
	return recs, nil
}
