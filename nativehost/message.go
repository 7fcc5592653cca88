// Package nativehost implements the native messaging side of the browser
// extension: length prefixed JSON messages over stdin/stdout and launching
// runtime executables with a document URL.
package nativehost

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize is the largest message accepted or sent. Browsers refuse
// host messages above 1 MiB.
const MaxMessageSize = 1 << 20

var ErrMessageTooLarge = errors.New("native message is too large")

// ReadMessage reads a single message and decodes it into v. io.EOF is
// returned unwrapped when input ends before a message starts.
func ReadMessage(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("unable to read message length: %w", err)
	}

	size := binary.NativeEndian.Uint32(header[:])
	if size > MaxMessageSize {
		return fmt.Errorf("%d bytes: %w", size, ErrMessageTooLarge)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("unable to read message of %d bytes: %w", size, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("unable to decode message: %w", err)
	}
	return nil
}

// WriteMessage encodes v and writes it as a single message.
func WriteMessage(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("unable to encode message: %w", err)
	}
	if len(body) > MaxMessageSize {
		return fmt.Errorf("%d bytes: %w", len(body), ErrMessageTooLarge)
	}

	buf := bytes.NewBuffer(make([]byte, 0, 4+len(body)))
	buf.Write(binary.NativeEndian.AppendUint32(nil, uint32(len(body))))
	buf.Write(body)
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("unable to write message: %w", err)
	}
	return nil
}
