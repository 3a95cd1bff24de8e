// Package classloader resolves class names to linked object.Class
// definitions through an ordered chain of loaders and a lifecycle state
// machine.
package classloader

import (
	"archive/zip"
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/jtype"
)

// Loader loads and decodes the .class file for an internal class name,
// returning the parsed *classfile.ClassFile. Name resolution order among multiple Loaders is the Registry's
// job, not the Loader's.
type Loader interface {
	LoadClass(name string) (*classfile.ClassFile, error)
}

// FSLoader loads classes from a directory on the classpath, one
// <name>.class file per class, grounded on the teacher's UserClassLoader.
type FSLoader struct {
	Root string
}

func NewFSLoader(root string) *FSLoader { return &FSLoader{Root: root} }

func (l *FSLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	path := filepath.Join(l.Root, filepath.FromSlash(name)+".class")
	cf, err := classfile.ParseFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "classpath %s: class %s not found", l.Root, name)
	}
	return cf, nil
}

// JarLoader loads classes out of a JAR's central directory, grounded on
// the teacher's JmodClassLoader (same zip-based approach, no jmod header
// to skip since a JAR has no 4-byte magic prefix).
type JarLoader struct {
	Path       string
	MainClass  string // from META-INF/MANIFEST.MF, if present
	reader     *zip.Reader
	closer     io.Closer
	entryCache map[string]*zip.File
}

// OpenJar opens path as a zip archive and indexes its entries and
// manifest.
func OpenJar(path string) (*JarLoader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening jar %s", path)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat jar %s", path)
	}
	zr, err := zip.NewReader(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "opening zip %s", path)
	}

	jl := &JarLoader{Path: path, reader: zr, closer: f, entryCache: make(map[string]*zip.File)}
	for _, entry := range zr.File {
		jl.entryCache[entry.Name] = entry
	}
	if manifest, ok := jl.entryCache["META-INF/MANIFEST.MF"]; ok {
		main, err := readMainClass(manifest)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "reading manifest")
		}
		jl.MainClass = main
	}
	return jl, nil
}

func (jl *JarLoader) Close() error {
	if jl.closer != nil {
		return jl.closer.Close()
	}
	return nil
}

func readMainClass(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		line := scanner.Text()
		if rest, ok := strings.CutPrefix(line, "Main-Class:"); ok {
			return jtype.NormalizeClassName(strings.TrimSpace(rest)), nil
		}
	}
	return "", scanner.Err()
}

// LoadResource reads an arbitrary (non-class) entry from the jar by its
// zip-relative path, for Class.getResourceAsBytes.
func (jl *JarLoader) LoadResource(name string) ([]byte, error) {
	entry, ok := jl.entryCache[strings.TrimPrefix(name, "/")]
	if !ok {
		return nil, errors.Errorf("jar %s: resource %s not found", jl.Path, name)
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening resource %s in jar", name)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (jl *JarLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	entry, ok := jl.entryCache[name+".class"]
	if !ok {
		return nil, errors.Errorf("jar %s: class %s not found", jl.Path, name)
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s in jar", name)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s in jar", name)
	}
	cf, err := classfile.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s from jar", name)
	}
	return cf, nil
}
