package redisstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	goGate "github.com/MrEthical07/goGate"
)

const (
	recordVersionV1 = 1
	tokenVersionV1  = 1
)

var errBadVersion = errors.New("redisstore: unknown record version")

func encodeRecord(rec *goGate.AuthenticationRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(recordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, rec.UserID); err != nil {
		return nil, err
	}
	for _, field := range [][]byte{[]byte(rec.Username), []byte(rec.PasswordHash), rec.SessionKey} {
		if err := writeBytes(&buf, field); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*goGate.AuthenticationRecord, error) {
	r := bytes.NewReader(data)
	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordVersionV1 {
		return nil, errBadVersion
	}

	rec := &goGate.AuthenticationRecord{}
	if err := binary.Read(r, binary.BigEndian, &rec.UserID); err != nil {
		return nil, err
	}
	username, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	hash, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	key, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	rec.Username = string(username)
	rec.PasswordHash = string(hash)
	rec.SessionKey = key
	return rec, nil
}

func encodeToken(tok *goGate.ResetToken) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(tokenVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, tok.UserID); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, tok.RequestTime.UnixNano()); err != nil {
		return nil, err
	}
	for _, field := range []string{tok.ID, tok.Token, tok.RequestIP, string(tok.Status)} {
		if err := writeBytes(&buf, []byte(field)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeToken(data []byte) (*goGate.ResetToken, error) {
	r := bytes.NewReader(data)
	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != tokenVersionV1 {
		return nil, errBadVersion
	}

	tok := &goGate.ResetToken{}
	var requested int64
	if err := binary.Read(r, binary.BigEndian, &tok.UserID); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &requested); err != nil {
		return nil, err
	}
	tok.RequestTime = time.Unix(0, requested).UTC()

	fields := make([]string, 4)
	for i := range fields {
		b, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		fields[i] = string(b)
	}
	tok.ID, tok.Token, tok.RequestIP = fields[0], fields[1], fields[2]
	tok.Status = goGate.TokenStatus(fields[3])
	return tok, nil
}

func writeBytes(buf *bytes.Buffer, b []byte) error {
	if len(b) > 65535 {
		return fmt.Errorf("redisstore: field of %d bytes too long", len(b))
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(b))); err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
