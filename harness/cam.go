package harness

import (
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnknownModel is returned for models absent from the registry.
var ErrUnknownModel = errors.New("model not in supported cams")

// Cam identifies one firmware image under test: the model, its ROM dumps
// and their MD5 content identities. The code ROM's identity keys scenario
// selection.
type Cam struct {
	Model  string
	RomDir string

	ROM0Path string
	ROM1Path string
	ROM0MD5  string
	ROM1MD5  string

	// CodeROMMD5 identifies the ROM holding the firmware code. Which of
	// the two that is depends on the Digic generation.
	CodeROMMD5 string

	Digic         int
	CanEmulateGUI bool
	HasSD         bool
	HasCF         bool
}

// NewCam locates and hashes the ROM dumps for a model under
// <romDir>/<model>/. The registry supplies the model's traits.
func NewCam(model, romDir string, reg Registry) (*Cam, error) {
	if model == "" {
		return nil, errors.New("no cam model given")
	}
	spec, ok := reg[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	if romDir == "" {
		return nil, errors.New("no rom dir given")
	}

	subdir := filepath.Join(romDir, model)
	if fi, err := os.Stat(subdir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("rom subdir didn't exist: %s", subdir)
	}

	cam := &Cam{
		Model:         model,
		RomDir:        romDir,
		Digic:         spec.Digic,
		CanEmulateGUI: spec.GUI,
		HasSD:         spec.SD,
		HasCF:         spec.CF,
	}

	var err error
	cam.ROM0Path = filepath.Join(subdir, "ROM0.BIN")
	if cam.ROM0MD5, err = fileMD5(cam.ROM0Path); err != nil {
		return nil, fmt.Errorf("couldn't read ROM0: %w", err)
	}
	cam.ROM1Path = filepath.Join(subdir, "ROM1.BIN")
	if cam.ROM1MD5, err = fileMD5(cam.ROM1Path); err != nil {
		return nil, fmt.Errorf("couldn't read ROM1: %w", err)
	}

	// Digic 4 and 5 keep code in ROM1, Digic 7 and up in ROM0. Digic 6 is
	// not mapped yet.
	switch spec.Digic {
	case 4, 5:
		cam.CodeROMMD5 = cam.ROM1MD5
	case 7, 8, 10:
		cam.CodeROMMD5 = cam.ROM0MD5
	default:
		return nil, fmt.Errorf("no code rom mapping for digic %d", spec.Digic)
	}

	return cam, nil
}

func fileMD5(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", md5.Sum(data)), nil
}
