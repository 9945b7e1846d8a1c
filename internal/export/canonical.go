package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"sort"

	"github.com/pkg/errors"
)

const contentTypesPart = "[Content_Types].xml"

type contentTypes struct {
	XMLName   xml.Name              `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Defaults  []contentTypeDefault  `xml:"Default"`
	Overrides []contentTypeOverride `xml:"Override"`
}

type contentTypeDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type contentTypeOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// canonicalPackage rewrites an OOXML package so equal content gives equal
// bytes: the content-types part comes first with its entries sorted, the
// other parts follow in name order, and no timestamps are stored.
func canonicalPackage(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read workbook package")
	}

	parts := make(map[string][]byte, len(zr.File))
	names := make([]string, 0, len(zr.File))
	for _, zf := range zr.File {
		body, err := readPart(zf)
		if err != nil {
			return nil, err
		}
		if zf.Name == contentTypesPart {
			if body, err = sortContentTypes(body); err != nil {
				return nil, err
			}
		} else {
			names = append(names, zf.Name)
		}
		parts[zf.Name] = body
	}
	sort.Strings(names)
	if _, ok := parts[contentTypesPart]; ok {
		names = append([]string{contentTypesPart}, names...)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to add %s", name)
		}
		if _, err := w.Write(parts[name]); err != nil {
			return nil, errors.Wrapf(err, "failed to write %s", name)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finish workbook package")
	}
	return buf.Bytes(), nil
}

func readPart(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", zf.Name)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", zf.Name)
	}
	return body, nil
}

func sortContentTypes(body []byte) ([]byte, error) {
	var ct contentTypes
	if err := xml.Unmarshal(body, &ct); err != nil {
		return nil, errors.Wrap(err, "failed to parse content types")
	}
	sort.Slice(ct.Defaults, func(i, j int) bool { return ct.Defaults[i].Extension < ct.Defaults[j].Extension })
	sort.Slice(ct.Overrides, func(i, j int) bool { return ct.Overrides[i].PartName < ct.Overrides[j].PartName })

	out, err := xml.Marshal(ct)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write content types")
	}
	return append([]byte(xml.Header), out...), nil
}
