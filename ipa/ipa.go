// Package ipa reads AltStore-relevant metadata out of .ipa archives: the
// Info.plist fields, the privacy permissions an app declares, and the file
// digest clients use to verify downloads.
package ipa

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"howett.net/plist"

	"github.com/altsrc-dev/altsrc/altsource"
)

var infoPlistRe = regexp.MustCompile(`^Payload/[^/]+\.app/Info\.plist$`)

var ErrNoInfoPlist = errors.New("no Info.plist found in archive")

// Info wraps an app's decoded Info.plist so callers don't need Apple's key
// names memorized.
type Info struct {
	plist map[string]interface{}
}

// Open reads the Info.plist out of the .ipa archive at path.
func Open(path string) (*Info, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening ipa: %w", err)
	}
	defer r.Close()
	return parse(&r.Reader)
}

func parse(r *zip.Reader) (*Info, error) {
	var plistFile *zip.File
	for _, f := range r.File {
		if infoPlistRe.MatchString(f.Name) {
			plistFile = f
			break
		}
	}
	if plistFile == nil {
		return nil, ErrNoInfoPlist
	}

	fr, err := plistFile.Open()
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	content, err := io.ReadAll(fr)
	if err != nil {
		return nil, err
	}

	var values map[string]interface{}
	if err := plist.NewDecoder(bytes.NewReader(content)).Decode(&values); err != nil {
		return nil, fmt.Errorf("decoding Info.plist: %w", err)
	}
	return &Info{plist: values}, nil
}

func (i *Info) str(key string) string {
	if v, ok := i.plist[key].(string); ok {
		return v
	}
	return ""
}

func (i *Info) BundleIdentifier() string {
	return i.str("CFBundleIdentifier")
}

func (i *Info) DisplayName() string {
	if name := i.str("CFBundleDisplayName"); name != "" {
		return name
	}
	return i.str("CFBundleName")
}

// ShortVersion is the user facing version string, with any leading "v"
// stripped the way AltStore expects.
func (i *Info) ShortVersion() string {
	return strings.TrimPrefix(i.str("CFBundleShortVersionString"), "v")
}

// BuildVersion is the internal build number, sometimes a single digit.
func (i *Info) BuildVersion() string {
	return i.str("CFBundleVersion")
}

func (i *Info) MinimumOSVersion() string {
	return i.str("MinimumOSVersion")
}

// Permissions harvests every NS…UsageDescription key in the plist into the
// privacy permission shape AltSources list.
func (i *Info) Permissions() *altsource.Permissions {
	perms := &altsource.Permissions{
		Entitlements: []*altsource.Entitlement{},
		Privacy:      []*altsource.Privacy{},
	}
	for key, value := range i.plist {
		if !strings.HasSuffix(key, "UsageDescription") {
			continue
		}
		desc, ok := value.(string)
		if !ok {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, "NS"), "UsageDescription")
		perms.Privacy = append(perms.Privacy, &altsource.Privacy{
			Name:             name,
			UsageDescription: desc,
		})
	}
	sort.Slice(perms.Privacy, func(a, b int) bool {
		return perms.Privacy[a].Name < perms.Privacy[b].Name
	})
	return perms
}

// Metadata is everything a source entry needs from one .ipa file.
type Metadata struct {
	BundleIdentifier string
	Version          string
	BuildVersion     string
	Size             int64
	SHA256           string
	Permissions      *altsource.Permissions
}

// Extract mines the archive at path for the metadata a Version and its App
// entry are built from.
func Extract(path string) (*Metadata, error) {
	info, err := Open(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	digest, err := SHA256(path)
	if err != nil {
		return nil, err
	}

	return &Metadata{
		BundleIdentifier: info.BundleIdentifier(),
		Version:          info.ShortVersion(),
		BuildVersion:     info.BuildVersion(),
		Size:             stat.Size(),
		SHA256:           digest,
		Permissions:      info.Permissions(),
	}, nil
}

// SHA256 returns the hex digest of the file at path.
func SHA256(path string) (string, error) {
	fd, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fd.Close()

	h := sha256.New()
	if _, err := io.Copy(h, fd); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
