package trace

import (
	"io"

	"ebtks/hw/hwio"
)

func hexEncode(dst []byte, v byte) {
	const hextable = "0123456789ABCDEF"
	dst[0] = hextable[v>>4]
	dst[1] = hextable[v&0x0f]
}

const auxChars = "DHIML"

// AppendText appends the fixed-width text form of r to dst:
//
//	FF18  Write   2A  wr        -----
func (r Record) AppendText(dst []byte) []byte {
	const (
		stateCol = 6
		ctrlCol  = 18
		auxCol   = 28
		lineLen  = auxCol + len(auxChars) + 1
	)

	off := len(dst)
	dst = append(dst, make([]byte, lineLen)...)
	buf := dst[off:]
	for i := range buf {
		buf[i] = ' '
	}

	hexEncode(buf[0:], byte(r.Addr>>8))
	hexEncode(buf[2:], byte(r.Addr))
	copy(buf[stateCol:], r.State().String())
	hexEncode(buf[stateCol+8:], r.Data)
	copy(buf[ctrlCol:], r.Ctrl.String())

	for i := range len(auxChars) {
		if hwio.GetBit8(r.Aux, uint(i)) {
			buf[auxCol+i] = auxChars[i]
		} else {
			buf[auxCol+i] = '-'
		}
	}
	buf[lineLen-1] = '\n'
	return dst
}

func (r Record) String() string {
	b := r.AppendText(nil)
	return string(b[:len(b)-1])
}

// WriteText writes one line per record.
func WriteText(w io.Writer, recs []Record) error {
	buf := make([]byte, 0, 64)
	for _, r := range recs {
		buf = r.AppendText(buf[:0])
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}
