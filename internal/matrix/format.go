package matrix

import (
	"bufio"
	"io"
	"strconv"
)

// Format writes m one row per line. Integer cells are written as-is; float
// cells use a fixed two-decimal, width-6 layout.
func Format[T Element](w io.Writer, m *Matrix[T]) error {
	bw := bufio.NewWriter(w)
	float := DTypeOf[T]().Float()
	buf := make([]byte, 0, 32)
	for i := 0; i < m.n; i++ {
		for j, v := range m.Row(i) {
			if j > 0 {
				_ = bw.WriteByte(' ')
			}
			buf = buf[:0]
			if float {
				buf = strconv.AppendFloat(buf, float64(v), 'f', 2, 64)
				for pad := len(buf); pad < 6; pad++ {
					_ = bw.WriteByte(' ')
				}
			} else {
				buf = strconv.AppendInt(buf, int64(v), 10)
			}
			_, _ = bw.Write(buf)
		}
		_ = bw.WriteByte('\n')
	}
	return bw.Flush()
}
