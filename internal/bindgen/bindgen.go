// Package bindgen generates the cgo binding module for the PSA Crypto
// public header.
//
// The heavy lifting is delegated to external machinery: the cross
// compiler's front end checks that the header parses under the build's
// exact preprocessor configuration, and cgo binds the declarations when
// the enclosing Go build compiles the emitted module. This package only
// wires the two together and is therefore regenerated on every run, never
// cached.
package bindgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"text/template"
)

// GenOp names the generation sub-step that failed.
type GenOp string

const (
	OpParse GenOp = "parse"
	OpWrite GenOp = "write"
)

// GenError reports a failed binding generation.
type GenError struct {
	Op     GenOp
	Header string
	Err    error
}

func (e *GenError) Error() string {
	return fmt.Sprintf("bindgen %s (%s): %v", e.Op, e.Header, e.Err)
}

func (e *GenError) Unwrap() error { return e.Err }

// Request describes one binding module to generate.
type Request struct {
	// Header is the public header to bind, e.g. .../interface/include/psa/crypto.h.
	Header string

	// IncludeDirs resolve the header's #include references.
	IncludeDirs []string

	// Defines are preprocessor macros; values are passed verbatim, so a
	// config-file macro must already carry its quotes. These must match
	// the configuration the firmware was built with, or the bindings
	// silently describe a different ABI.
	Defines map[string]string

	// Package is the package clause of the emitted module.
	Package string

	// LinkArgs are raw linker arguments forwarded through #cgo LDFLAGS.
	LinkArgs []string

	// OutPath is where the module is written.
	OutPath string
}

// Generator emits cgo binding modules.
type Generator struct {
	cc     string
	stdout io.Writer
}

// Option configures a Generator.
type Option func(*Generator)

// WithCompiler sets the C front end used for the parse check. This should
// be the cross compiler the firmware was built with so the header is seen
// exactly as the build saw it.
func WithCompiler(path string) Option {
	return func(g *Generator) {
		g.cc = path
	}
}

// WithOutput streams compiler diagnostics to w.
func WithOutput(w io.Writer) Option {
	return func(g *Generator) {
		g.stdout = w
	}
}

// New creates a Generator. Without WithCompiler the parse check uses "cc".
func New(opts ...Option) *Generator {
	g := &Generator{cc: "cc"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate checks that the header parses under the request's preprocessor
// configuration, then writes the binding module to req.OutPath,
// overwriting any previous run's output.
func (g *Generator) Generate(ctx context.Context, req Request) error {
	if err := g.parseCheck(ctx, req); err != nil {
		return &GenError{Op: OpParse, Header: req.Header, Err: err}
	}

	var buf bytes.Buffer
	if err := moduleTemplate.Execute(&buf, templateData(req)); err != nil {
		return &GenError{Op: OpWrite, Header: req.Header, Err: err}
	}
	if err := os.WriteFile(req.OutPath, buf.Bytes(), 0o644); err != nil {
		return &GenError{Op: OpWrite, Header: req.Header, Err: err}
	}
	return nil
}

// parseCheck runs the C front end over the header in freestanding mode, so
// no hosted runtime library is assumed.
func (g *Generator) parseCheck(ctx context.Context, req Request) error {
	args := []string{"-fsyntax-only", "-ffreestanding"}
	for _, dir := range req.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	args = append(args, defineArgs(req.Defines)...)
	args = append(args, req.Header)

	cmd := exec.CommandContext(ctx, g.cc, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if g.stdout != nil {
		cmd.Stdout = g.stdout
		cmd.Stderr = io.MultiWriter(&stderr, g.stdout)
	}
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s", msg)
		}
		return err
	}
	return nil
}

func defineArgs(defines map[string]string) []string {
	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, "-D"+k+"="+defines[k])
	}
	return args
}

type moduleData struct {
	Package string
	CFlags  string
	LDFlags string
	Header  string
}

func templateData(req Request) moduleData {
	var cflags []string
	for _, dir := range req.IncludeDirs {
		cflags = append(cflags, "-I"+dir)
	}
	for _, arg := range defineArgs(req.Defines) {
		// cgo directive lines need the macro's quotes escaped.
		cflags = append(cflags, strings.ReplaceAll(arg, `"`, `\"`))
	}
	pkg := req.Package
	if pkg == "" {
		pkg = "tfm"
	}
	return moduleData{
		Package: pkg,
		CFlags:  strings.Join(cflags, " "),
		LDFlags: strings.Join(req.LinkArgs, " "),
		Header:  req.Header,
	}
}

var moduleTemplate = template.Must(template.New("bindings").Parse(`// Code generated by tfmprov; DO NOT EDIT.

// Package {{.Package}} exposes the PSA Crypto interface of the secure
// firmware built alongside this module. The declarations are bound by cgo
// from the firmware's public header; calls cross the secure boundary
// through the veneer object supplied at link time.
package {{.Package}}

/*
#cgo CFLAGS: {{.CFlags}}
{{if .LDFlags}}#cgo LDFLAGS: {{.LDFlags}}
{{end}}#include <psa/crypto.h>
*/
import "C"

// Status is the PSA status code returned by every operation.
type Status = C.psa_status_t

// KeyID identifies a key in the secure key store.
type KeyID = C.psa_key_id_t

// Algorithm selects a cryptographic algorithm.
type Algorithm = C.psa_algorithm_t

// KeyType describes a key's type and representation.
type KeyType = C.psa_key_type_t

// Success is the Status reported by operations that completed without error.
const Success = Status(0)

// CryptoInit initializes the PSA Crypto subsystem. It must complete
// successfully before any other operation is called.
func CryptoInit() Status {
	return C.psa_crypto_init()
}

// GenerateRandom fills buf with random bytes from the secure side.
func GenerateRandom(buf []byte) Status {
	if len(buf) == 0 {
		return Success
	}
	return C.psa_generate_random((*C.uint8_t)(&buf[0]), C.size_t(len(buf)))
}
`))
