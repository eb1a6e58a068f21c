package devcms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/google/uuid"

	"github.com/eringen/pubfront/prismic"
	"github.com/eringen/pubfront/richtext"
)

// PostType is the document type imported posts are stored under.
const PostType = "posts"

// frontMatter is the YAML header of a post file.
type frontMatter struct {
	Title     string `yaml:"title"`
	Subtitle  string `yaml:"subtitle"`
	Author    string `yaml:"author"`
	Banner    string `yaml:"banner"`
	BannerAlt string `yaml:"banner_alt"`
	UID       string `yaml:"uid"`
	Date      string `yaml:"date"`
	Updated   string `yaml:"updated"`
	Draft     bool   `yaml:"draft"`
}

type bannerData struct {
	URL        string               `json:"url"`
	Alt        string               `json:"alt"`
	Dimensions *richtext.Dimensions `json:"dimensions,omitempty"`
}

type postData struct {
	Title    string      `json:"title"`
	Subtitle string      `json:"subtitle"`
	Author   string      `json:"author"`
	Banner   *bannerData `json:"banner,omitempty"`
	Content  []Section   `json:"content"`
}

// Importer turns a directory of Markdown posts into stored documents.
type Importer struct {
	Store    *Store
	MediaDir string // where processed images are written
	MediaURL string // URL prefix the media dir is served under
	Logger   *slog.Logger
}

// ImportResult summarises one import.
type ImportResult struct {
	Ref       string
	Documents int
	Drafts    int
}

// ImportDir reads every .md file under dir and replaces the stored
// documents with them under a new master ref.
func (im *Importer) ImportDir(ctx context.Context, dir string) (ImportResult, error) {
	logger := im.logger()
	var recs []Record
	seen := make(map[string]string)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		rec, err := im.ImportFile(path)
		if err != nil {
			return err
		}
		if prev, ok := seen[rec.UID]; ok {
			return fmt.Errorf("duplicate uid %q in %s and %s", rec.UID, prev, path)
		}
		seen[rec.UID] = path
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("import %s: %w", dir, err)
	}

	res := ImportResult{Ref: uuid.NewString(), Documents: len(recs)}
	for _, r := range recs {
		if r.Draft {
			res.Drafts++
		}
	}
	if err := im.Store.Replace(ctx, recs, res.Ref); err != nil {
		return ImportResult{}, fmt.Errorf("import %s: %w", dir, err)
	}
	logger.Info("content imported", "dir", dir, "documents", res.Documents, "drafts", res.Drafts, "ref", res.Ref)
	return res, nil
}

// ImportFile converts one Markdown post into a record.
func (im *Importer) ImportFile(path string) (Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var fm frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(raw), &fm)
	if err != nil {
		return Record{}, fmt.Errorf("%s: front matter: %w", path, err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if fm.Title == "" {
		fm.Title = base
	}
	uid := fm.UID
	if uid == "" {
		uid = Slugify(fm.Title)
	}
	if uid == "" {
		uid = Slugify(base)
	}
	if uid == "" {
		return Record{}, fmt.Errorf("%s: cannot derive a uid", path)
	}

	first, last, err := im.dates(path, fm)
	if err != nil {
		return Record{}, err
	}

	dir := filepath.Dir(path)
	n := 0
	images := func(dest string) (string, *richtext.Dimensions) {
		n++
		return im.media(dir, dest, uid+"-"+strconv.Itoa(n))
	}

	data := postData{
		Title:    fm.Title,
		Subtitle: fm.Subtitle,
		Author:   fm.Author,
		Content:  ParseMarkdown(body, images),
	}
	if data.Content == nil {
		data.Content = []Section{}
	}
	if fm.Banner != "" {
		u, dims := im.media(dir, fm.Banner, uid+"-banner")
		data.Banner = &bannerData{URL: u, Alt: fm.BannerAlt, Dimensions: dims}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return Record{}, err
	}

	return Record{
		ID:             DocumentID(PostType, uid),
		UID:            uid,
		Type:           PostType,
		Lang:           "pt-br",
		Draft:          fm.Draft,
		FirstPublished: first,
		LastPublished:  last,
		Data:           encoded,
		Source:         path,
	}, nil
}

// DocumentID is the stable id of the document of docType with uid, so
// preview links keep working across imports.
func DocumentID(docType, uid string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("devcms:"+docType+"/"+uid)).String()
}

func (im *Importer) dates(path string, fm frontMatter) (time.Time, time.Time, error) {
	var first time.Time
	if fm.Date == "" {
		info, err := os.Stat(path)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		first = info.ModTime().UTC().Truncate(time.Second)
	} else {
		t, err := prismic.ParseTime(fm.Date)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%s: date: %w", path, err)
		}
		first = t
	}
	last := first
	if fm.Updated != "" {
		t, err := prismic.ParseTime(fm.Updated)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%s: updated: %w", path, err)
		}
		if t.Before(first) {
			return time.Time{}, time.Time{}, fmt.Errorf("%s: updated is before date", path)
		}
		last = t
	}
	return first, last, nil
}

// media stores a local image in the media dir and returns its served URL.
// Remote URLs are returned unchanged, as are images that fail to process.
func (im *Importer) media(dir, dest, name string) (string, *richtext.Dimensions) {
	if dest == "" || im.MediaDir == "" || isRemote(dest) {
		return dest, nil
	}
	path := dest
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, filepath.FromSlash(dest))
	}
	filename, dims, err := writeMedia(path, im.MediaDir, name)
	if err != nil {
		im.logger().Warn("image skipped", "src", path, "error", err)
		return dest, nil
	}
	return strings.TrimRight(im.MediaURL, "/") + "/" + filename, &dims
}

func (im *Importer) logger() *slog.Logger {
	if im.Logger != nil {
		return im.Logger
	}
	return slog.Default()
}

func isRemote(dest string) bool {
	if strings.HasPrefix(dest, "//") {
		return true
	}
	u, err := url.Parse(dest)
	return err == nil && u.Scheme != ""
}
