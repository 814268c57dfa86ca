package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/i-melnichenko/riak-wire/internal/jiak"
	"github.com/i-melnichenko/riak-wire/internal/multipart"
	"github.com/i-melnichenko/riak-wire/internal/object"
	"github.com/i-melnichenko/riak-wire/internal/raw"
)

func openInput(inPath string) (io.ReadCloser, error) {
	if inPath == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	// #nosec G304 -- CLI intentionally reads a user-provided local input file.
	return os.Open(inPath)
}

// cmdJiak decodes a Jiak document and writes its canonical encoding. With
// headers set it writes the raw-interface headers of the object instead.
func cmdJiak(w io.Writer, in io.Reader, prefix string, headers bool) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	doc, err := jiak.Decode(data)
	if err != nil {
		return err
	}
	if !headers {
		_, err = fmt.Fprintf(w, "%s\n", doc.Encode())
		return err
	}

	obj, err := doc.ToObject()
	if err != nil {
		return err
	}
	writeHeaders(w, raw.EncodeHeaders(obj, prefix))
	return nil
}

// cmdSiblings parses a dumped HTTP response (status line, headers, body)
// and writes each sibling object it carries.
func cmdSiblings(w io.Writer, in io.Reader, bucket, key, prefix string, asJiak bool) error {
	resp, err := http.ReadResponse(bufio.NewReader(in), nil)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	objs, err := raw.ParseResponse(bucket, key, resp)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "%d sibling(s)\n", len(objs))
	for i, o := range objs {
		_, _ = fmt.Fprintf(w, "\n[%d] %s/%s\n", i+1, o.Bucket, o.Key)
		if asJiak {
			doc, err := jiak.FromObject(o)
			if err != nil {
				return fmt.Errorf("sibling %d: %w", i+1, err)
			}
			_, _ = fmt.Fprintf(w, "%s\n", doc.Encode())
			continue
		}
		writeObject(w, o, prefix)
	}
	return nil
}

func writeObject(w io.Writer, o object.Object, prefix string) {
	if o.LastModified != "" {
		_, _ = fmt.Fprintf(w, "Last-Modified: %s\n", o.LastModified)
	}
	if o.VTag != "" {
		_, _ = fmt.Fprintf(w, "ETag: %s\n", o.VTag)
	}
	writeHeaders(w, raw.EncodeHeaders(o, prefix))
	_, _ = fmt.Fprintf(w, "\n%s\n", o.Value)
}

func writeHeaders(w io.Writer, h multipart.Header) {
	for _, f := range h {
		_, _ = fmt.Fprintf(w, "%s: %s\n", f.Name, f.Value)
	}
}
