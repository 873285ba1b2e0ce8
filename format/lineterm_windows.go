//go:build windows

package format

// lineTerminator ends every formatted record line.
const lineTerminator = "\r\n"
