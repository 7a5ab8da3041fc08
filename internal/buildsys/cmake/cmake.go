// Package cmake wraps the cmake configure/build/install workflow.
package cmake

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/psakit/tfmprov/internal/procenv"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake drives CMake-based builds. Environment overrides apply only to the
// spawned cmake processes, never to the parent.
type CMake struct {
	sourceDir  string
	buildDir   string
	installDir string
	generator  string
	buildType  string
	cmakeBin   string
	defines    map[string]defineValue
	env        map[string]string
	stdout     io.Writer
}

// New returns a ready-to-use CMake.
func New(sourceDir, buildDir, installDir string) *CMake {
	return &CMake{
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		cmakeBin:   "cmake",
		defines:    make(map[string]defineValue),
		env:        make(map[string]string),
	}
}

// Binary overrides the cmake executable path.
func (c *CMake) Binary(path string) { c.cmakeBin = path }

// Generator sets the CMake generator (e.g. "Ninja", "Unix Makefiles").
func (c *CMake) Generator(name string) { c.generator = name }

// BuildType sets CMAKE_BUILD_TYPE (e.g. "Release", "Debug").
func (c *CMake) BuildType(name string) { c.buildType = name }

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
}

// DefinePath adds a -D<key>:FILEPATH=<path> definition.
func (c *CMake) DefinePath(key, path string) {
	c.defines[key] = defineValue{value: path, typeName: "FILEPATH"}
}

// Env sets an environment variable for the spawned cmake processes.
func (c *CMake) Env(key, value string) {
	c.env[key] = value
}

// Output streams cmake's output to w.
func (c *CMake) Output(w io.Writer) { c.stdout = w }

// Configure runs "cmake -S <source> -B <build>" with all configured options.
// Extra args are appended at the end.
func (c *CMake) Configure(args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	cmakeArgs := []string{"-S", c.sourceDir, "-B", c.buildDir}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	if c.installDir != "" {
		c.Define("CMAKE_INSTALL_PREFIX", c.installDir)
	}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", c.buildType)
	}
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	cmakeArgs = append(cmakeArgs, args...)
	return c.run(cmakeArgs)
}

// Build runs "cmake --build <build>" with optional extra arguments.
func (c *CMake) Build(args ...string) error {
	cmakeArgs := []string{"--build", c.buildDir}
	if c.buildType != "" {
		cmakeArgs = append(cmakeArgs, "--config", c.buildType)
	}
	cmakeArgs = append(cmakeArgs, args...)
	return c.run(cmakeArgs)
}

// Install runs "cmake --install <build>" with optional extra arguments.
func (c *CMake) Install(args ...string) error {
	cmakeArgs := []string{"--install", c.buildDir}
	if c.installDir != "" {
		cmakeArgs = append(cmakeArgs, "--prefix", c.installDir)
	}
	cmakeArgs = append(cmakeArgs, args...)
	return c.run(cmakeArgs)
}

// OutputDir returns installDir if set, otherwise buildDir.
func (c *CMake) OutputDir() string {
	if c.installDir != "" {
		return c.installDir
	}
	return c.buildDir
}

// HeaderDir returns the install tree's include directory.
func (c *CMake) HeaderDir() string {
	return filepath.Join(c.OutputDir(), "include")
}

func (c *CMake) run(args []string) error {
	cmd := exec.Command(c.cmakeBin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if c.stdout != nil {
		cmd.Stdout = c.stdout
		cmd.Stderr = c.stdout
	}
	if len(c.env) > 0 {
		cmd.Env = procenv.Merge(os.Environ(), c.env)
	}
	return cmd.Run()
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := c.defines[k]
		args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
	}
	return args
}
