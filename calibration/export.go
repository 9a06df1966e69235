package calibration

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go.viam.com/camcal/rimage/transform"
)

// maxOSTBytes is the hard size limit of an oST parameter block.
const maxOSTBytes = 525

func formatRow(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%8f", v)
	}
	return strings.Join(parts, " ")
}

// OST returns the calibration in the oST v5.0 text format. The block must stay under 525 bytes,
// otherwise ErrOSTTooLarge is returned.
func (ci *CameraInfo) OST() (string, error) {
	lines := []string{
		"# oST version 5.0 parameters",
		"",
		"",
		"[image]",
		"",
		"width",
		fmt.Sprintf("%d", ci.Width),
		"",
		"height",
		fmt.Sprintf("%d", ci.Height),
		"",
		fmt.Sprintf("[%s]", ci.Name),
		"",
		"camera matrix",
		formatRow(ci.K[0:3]),
		formatRow(ci.K[3:6]),
		formatRow(ci.K[6:9]),
		"",
		"distortion",
		formatRow(ci.D),
		"",
		"rectification",
		formatRow(ci.R[0:3]),
		formatRow(ci.R[3:6]),
		formatRow(ci.R[6:9]),
		"",
		"projection",
		formatRow(ci.P[0:4]),
		formatRow(ci.P[4:8]),
		formatRow(ci.P[8:12]),
		"",
	}
	text := strings.Join(lines, "\n")
	if len(text) >= maxOSTBytes {
		return "", errors.Wrapf(ErrOSTTooLarge, "%q is %d bytes", ci.Name, len(text))
	}
	return text, nil
}

// OST returns the oST blocks of the left then the right camera.
func (sr *StereoResult) OST() (string, error) {
	left, err := sr.Left.OST()
	if err != nil {
		return "", err
	}
	right, err := sr.Right.OST()
	if err != nil {
		return "", err
	}
	return left + right, nil
}

type yamlMatrix struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	Data []float64 `yaml:"data,flow"`
}

func (m yamlMatrix) check(name string, rows, cols int) error {
	if m.Rows != rows || (cols > 0 && m.Cols != cols) || len(m.Data) != m.Rows*m.Cols {
		return errors.Errorf("%s is %dx%d with %d values", name, m.Rows, m.Cols, len(m.Data))
	}
	return nil
}

type cameraInfoYAML struct {
	ImageWidth             int        `yaml:"image_width"`
	ImageHeight            int        `yaml:"image_height"`
	CameraName             string     `yaml:"camera_name"`
	CameraMatrix           yamlMatrix `yaml:"camera_matrix"`
	DistortionModel        string     `yaml:"distortion_model"`
	DistortionCoefficients yamlMatrix `yaml:"distortion_coefficients"`
	RectificationMatrix    yamlMatrix `yaml:"rectification_matrix"`
	ProjectionMatrix       yamlMatrix `yaml:"projection_matrix"`
}

// YAML returns the calibration in the camera_info YAML layout.
func (ci *CameraInfo) YAML() ([]byte, error) {
	doc := cameraInfoYAML{
		ImageWidth:             ci.Width,
		ImageHeight:            ci.Height,
		CameraName:             ci.Name,
		CameraMatrix:           yamlMatrix{3, 3, ci.K[:]},
		DistortionModel:        string(ci.DistortionModel),
		DistortionCoefficients: yamlMatrix{1, len(ci.D), append([]float64{}, ci.D...)},
		RectificationMatrix:    yamlMatrix{3, 3, ci.R[:]},
		ProjectionMatrix:       yamlMatrix{3, 4, ci.P[:]},
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(err, "encoding camera info")
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseCameraInfoYAML reads a calibration written in the camera_info YAML layout.
func ParseCameraInfoYAML(data []byte) (*CameraInfo, error) {
	var doc cameraInfoYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decoding camera info")
	}
	if doc.ImageWidth <= 0 || doc.ImageHeight <= 0 {
		return nil, errors.Errorf("invalid image size (%d,%d)", doc.ImageWidth, doc.ImageHeight)
	}
	if err := doc.CameraMatrix.check("camera_matrix", 3, 3); err != nil {
		return nil, err
	}
	if err := doc.DistortionCoefficients.check("distortion_coefficients", 1, 0); err != nil {
		return nil, err
	}
	if err := doc.RectificationMatrix.check("rectification_matrix", 3, 3); err != nil {
		return nil, err
	}
	if err := doc.ProjectionMatrix.check("projection_matrix", 3, 4); err != nil {
		return nil, err
	}

	ci := &CameraInfo{
		Name:            doc.CameraName,
		Width:           doc.ImageWidth,
		Height:          doc.ImageHeight,
		DistortionModel: transform.DistortionType(doc.DistortionModel),
		D:               doc.DistortionCoefficients.Data,
	}
	if ci.DistortionModel == transform.EquidistantDistortionType {
		ci.Model = CameraModelFisheye
	}
	if _, err := ci.Distorter(); err != nil {
		return nil, err
	}
	copy(ci.K[:], doc.CameraMatrix.Data)
	copy(ci.R[:], doc.RectificationMatrix.Data)
	copy(ci.P[:], doc.ProjectionMatrix.Data)
	if err := ci.Intrinsics().CheckValid(); err != nil {
		return nil, err
	}
	return ci, nil
}
