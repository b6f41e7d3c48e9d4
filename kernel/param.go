package kernel

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	INITPROC = "initproc"
	NFRAME   = 4096
	NCACHE   = 16
)

type Param struct {
	InitProc string   `yaml:"initproc"`
	Images   string   `yaml:"images"`
	Apps     []string `yaml:"apps"`
	Frames   int      `yaml:"frames"`
	Debug    string   `yaml:"debug"`
	Cache    int      `yaml:"cache"`
}

func DefaultParam() *Param {
	return &Param{
		InitProc: INITPROC,
		Frames:   NFRAME,
		Cache:    NCACHE,
	}
}

// ParseParam decodes YAML parameters over the defaults.
func ParseParam(b []byte) (*Param, error) {
	param := DefaultParam()
	d := yaml.NewDecoder(bytes.NewReader(b))
	if err := d.Decode(param); err != nil {
		return nil, err
	}
	return param, nil
}

func ReadParam(pn string) (*Param, error) {
	b, err := os.ReadFile(pn)
	if err != nil {
		return nil, err
	}
	return ParseParam(b)
}
