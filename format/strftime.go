package format

import "time"

// appendStrftime renders t using a strftime style pattern. The supported
// directives cover the configuration surface for record and file name
// formats; an unknown directive passes through verbatim.
func appendStrftime(buf []byte, pattern string, t time.Time) []byte {
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' || i+1 >= len(pattern) {
			buf = append(buf, c)
			continue
		}
		i++
		switch pattern[i] {
		case 'Y':
			buf = appendInt(buf, t.Year(), 4)
		case 'y':
			buf = appendInt(buf, t.Year()%100, 2)
		case 'm':
			buf = appendInt(buf, int(t.Month()), 2)
		case 'd':
			buf = appendInt(buf, t.Day(), 2)
		case 'j':
			buf = appendInt(buf, t.YearDay(), 3)
		case 'H':
			buf = appendInt(buf, t.Hour(), 2)
		case 'M':
			buf = appendInt(buf, t.Minute(), 2)
		case 'S':
			buf = appendInt(buf, t.Second(), 2)
		case 'f':
			buf = appendInt(buf, t.Nanosecond()/1000, 6)
		case '3':
			// %3f, milliseconds
			if i+1 < len(pattern) && pattern[i+1] == 'f' {
				i++
				buf = appendInt(buf, t.Nanosecond()/1000000, 3)
			} else {
				buf = append(buf, '%', '3')
			}
		case '%':
			buf = append(buf, '%')
		default:
			buf = append(buf, '%', pattern[i])
		}
	}
	return buf
}

// appendInt writes a zero padded fixed width decimal.
func appendInt(buf []byte, v, width int) []byte {
	var tmp [20]byte
	pos := len(tmp)
	for v >= 10 || width > 1 {
		width--
		q := v / 10
		pos--
		tmp[pos] = byte('0' + v - q*10)
		v = q
	}
	pos--
	tmp[pos] = byte('0' + v)
	return append(buf, tmp[pos:]...)
}
