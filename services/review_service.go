package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/princinho/dashbackend/database"
	"github.com/princinho/dashbackend/logging"
	"github.com/princinho/dashbackend/models"
	"github.com/princinho/dashbackend/storage"
	"github.com/princinho/dashbackend/utils"
)

const DefaultMaxReviewFiles = 10

type ReviewOptions struct {
	MaxFiles  int
	Validator *utils.FileValidator
	Logger    logging.Logger
	Now       func() time.Time
}

// ReviewService stores uploaded review files in a blob backend and keeps an
// index of them in the reviews collection.
type ReviewService struct {
	store     *database.Store
	backend   storage.Backend
	validator *utils.FileValidator
	maxFiles  int
	log       logging.Logger
	now       func() time.Time
	newID     func() string
}

func NewReviewService(store *database.Store, backend storage.Backend, opts ReviewOptions) *ReviewService {
	s := &ReviewService{
		store:     store,
		backend:   backend,
		validator: opts.Validator,
		maxFiles:  opts.MaxFiles,
		log:       opts.Logger,
		now:       opts.Now,
		newID:     uuid.NewString,
	}
	if s.maxFiles <= 0 {
		s.maxFiles = DefaultMaxReviewFiles
	}
	if s.validator == nil {
		s.validator = utils.NewPDFOrImageValidator(0)
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *ReviewService) MaxFiles() int {
	return s.maxFiles
}

// SaveUploads validates every file first, then stores them and records one
// Review per file. eventName tags all of them; without it each review is
// tagged with its own file name. On failure nothing is indexed and any files
// already stored are removed.
func (s *ReviewService) SaveUploads(ctx context.Context, files []*multipart.FileHeader, eventName string) ([]models.Review, error) {
	if len(files) == 0 {
		return nil, NewInvalidError("no files uploaded")
	}
	if len(files) > s.maxFiles {
		return nil, NewInvalidError(fmt.Sprintf("too many files (max %d)", s.maxFiles))
	}

	mimes := make([]string, len(files))
	for i, fh := range files {
		m, err := s.validator.ValidateFile(fh)
		if err != nil {
			return nil, NewInvalidError(fmt.Sprintf("%s: %v", fh.Filename, err))
		}
		mimes[i] = m
	}

	eventName = strings.TrimSpace(eventName)
	reviews := make([]models.Review, 0, len(files))
	for i, fh := range files {
		id := s.newID()
		name := fmt.Sprintf("reviews/%s-%s", id, utils.SafeFileName(fh.Filename))
		if err := s.put(ctx, name, fh, mimes[i]); err != nil {
			s.discard(ctx, reviews)
			return nil, err
		}
		tag := eventName
		if tag == "" {
			tag = fh.Filename
		}
		reviews = append(reviews, models.Review{
			ID:           id,
			OriginalName: fh.Filename,
			EventName:    tag,
			Mime:         mimes[i],
			Size:         fh.Size,
			Path:         name,
			UploadedAt:   s.now().UTC(),
		})
	}

	err := s.store.Update(ctx, func(db *models.Database) error {
		db.Reviews = append(db.Reviews, reviews...)
		return nil
	})
	if err != nil {
		s.discard(ctx, reviews)
		return nil, err
	}
	s.log.Info(ctx, "review files stored", "count", len(reviews), "backend", s.backend.Describe())
	return reviews, nil
}

func (s *ReviewService) put(ctx context.Context, name string, fh *multipart.FileHeader, contentType string) error {
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	if err := s.backend.Put(ctx, name, f, fh.Size, contentType); err != nil {
		return fmt.Errorf("store %s: %w", filepath.Base(name), err)
	}
	return nil
}

// discard removes stored files that will not be indexed.
func (s *ReviewService) discard(ctx context.Context, reviews []models.Review) {
	for _, r := range reviews {
		if err := s.backend.Delete(ctx, r.Path); err != nil {
			s.log.Warn(ctx, "could not remove orphaned upload", "path", r.Path, "err", err)
		}
	}
}

func (s *ReviewService) List(ctx context.Context) []models.Review {
	var out []models.Review
	s.store.View(func(db *models.Database) {
		out = append(make([]models.Review, 0, len(db.Reviews)), db.Reviews...)
	})
	return out
}

func (s *ReviewService) Get(ctx context.Context, id string) (*models.Review, error) {
	var found *models.Review
	s.store.View(func(db *models.Database) {
		for _, r := range db.Reviews {
			if r.ID == id {
				r := r
				found = &r
				return
			}
		}
	})
	if found == nil {
		return nil, NewNotFoundError("review not found")
	}
	return found, nil
}

// Open returns the stored file of a review.
func (s *ReviewService) Open(ctx context.Context, id string) (io.ReadCloser, *models.Review, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.backend.Open(ctx, r.Path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, NewNotFoundError("review file missing")
	}
	if err != nil {
		return nil, nil, err
	}
	return rc, r, nil
}

// Delete drops the review from the index and then tries to remove its file.
// A file that cannot be removed is logged; the delete still succeeds.
func (s *ReviewService) Delete(ctx context.Context, id string) error {
	var removed *models.Review
	err := s.store.Update(ctx, func(db *models.Database) error {
		for i, r := range db.Reviews {
			if r.ID == id {
				r := r
				removed = &r
				db.Reviews = append(db.Reviews[:i], db.Reviews[i+1:]...)
				return nil
			}
		}
		return errNoChange
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return err
	}
	if removed == nil {
		return nil
	}
	if err := s.backend.Delete(ctx, removed.Path); err != nil {
		s.log.Warn(ctx, "review file not removed", "id", id, "path", removed.Path, "err", err)
	}
	return nil
}
