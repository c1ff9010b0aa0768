package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/jxskiss/base62"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPassword(hash string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// EqualPlaintext compares a legacy unhashed credential in constant time.
func EqualPlaintext(stored, password string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// NewSessionToken returns an opaque random token (26 base32 chars, 130 bits).
func NewSessionToken() string {
	return rand.Text()
}

// RandomPassword returns a base62 password built from n random bytes.
func RandomPassword(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random password: %w", err)
	}
	return base62.StdEncoding.EncodeToString(b), nil
}

var nonFileChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// SafeFileName reduces an uploaded file name to lower-case ASCII letters,
// digits, dots, dashes and underscores, keeping the extension.
func SafeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	// Normalize accents
	t := norm.NFD.String(name)
	var b strings.Builder
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	s := strings.ToLower(b.String())
	s = nonFileChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")
	if s == "" {
		return "file"
	}
	return s
}

type FileValidator struct {
	allowedExt  map[string]bool
	allowedMime map[string]bool
	maxSize     int64
}

// NewPDFOrImageValidator accepts common image formats and PDFs up to sizeMB.
func NewPDFOrImageValidator(sizeMB int) *FileValidator {
	if sizeMB <= 0 {
		sizeMB = 5
	}
	allowedExt := map[string]bool{}
	for _, ext := range []string{".pdf", ".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		allowedExt[ext] = true
	}
	allowedMime := map[string]bool{}
	for _, m := range []string{"application/pdf", "image/jpeg", "image/png", "image/gif", "image/webp"} {
		allowedMime[m] = true
	}
	return &FileValidator{
		allowedExt:  allowedExt,
		allowedMime: allowedMime,
		maxSize:     int64(sizeMB) << 20,
	}
}

// ValidateFile checks size, extension and sniffed content type and returns
// the detected mime type.
func (v *FileValidator) ValidateFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > v.maxSize {
		return "", fmt.Errorf("file too large (max %d MB)", v.maxSize>>20)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !v.allowedExt[ext] {
		return "", fmt.Errorf("invalid file extension %q", ext)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && n == 0 {
		return "", fmt.Errorf("failed to read file header")
	}

	detected := strings.ToLower(http.DetectContentType(buffer[:n]))
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = strings.TrimSpace(detected[:i])
	}
	if !v.allowedMime[detected] {
		return "", fmt.Errorf("invalid file type %q", detected)
	}
	return detected, nil
}

// IsPasswordHash reports whether s looks like a bcrypt hash.
func IsPasswordHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
