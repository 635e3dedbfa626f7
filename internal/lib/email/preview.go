package email

import "github.com/pkg/errors"

// PreviewData holds sample values per template for local previews.
var PreviewData = map[Template]map[string]string{
	TemplateCertificateIssued: {
		"UserFirstName": "Jane",
		"CourseTitle":   "Basic Life Support",
	},
}

// Preview renders a template with its sample data.
func Preview(name Template) (string, error) {
	data, ok := PreviewData[name]
	if !ok {
		return "", errors.Errorf("no preview data for template %s", name)
	}
	return render(name, data)
}
