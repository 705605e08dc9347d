// Package sqlstore implements store.Store on top of gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/db/models"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/store"
)

const whereDocumentRef = "wiki = ? AND space = ? AND name = ?"

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// Store persists documents in the documents, objects and object_properties tables.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New creates a new SQL backed store.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	return &Store{db: db}, nil
}

// Migrate creates or updates the tables used by the store.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return ErrDBNil
	}

	return db.AutoMigrate(
		&models.Document{},
		&models.Object{},
		&models.ObjectProperty{},
	)
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, ref store.Reference) (*store.Document, error) {
	if !ref.Valid() {
		return nil, store.ErrEmptyReference
	}

	var row models.Document

	err := s.db.WithContext(ctx).
		Preload("Objects", func(db *gorm.DB) *gorm.DB { return db.Order("class, number") }).
		Preload("Objects.Properties").
		Where(whereDocumentRef, ref.Wiki, ref.Space, ref.Name).
		First(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.NewDocument(ref), nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", ref, err)
	}

	return toDocument(&row), nil
}

// Save implements store.Store.
func (s *Store) Save(ctx context.Context, doc *store.Document) error {
	if !doc.Ref.Valid() {
		return store.ErrEmptyReference
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Document

		err := tx.Where(whereDocumentRef, doc.Ref.Wiki, doc.Ref.Space, doc.Ref.Name).First(&row).Error

		switch {
		case err == nil && doc.New:
			return store.ErrDocumentExists
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = models.Document{Wiki: doc.Ref.Wiki, Space: doc.Ref.Space, Name: doc.Ref.Name}

			if errCreate := tx.Create(&row).Error; errCreate != nil {
				if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
					return store.ErrDocumentExists
				}

				return fmt.Errorf("failed to create document: %w", errCreate)
			}
		case err != nil:
			return fmt.Errorf("failed to query document: %w", err)
		default:
			if errTouch := tx.Model(&row).Update("updated_at", time.Now()).Error; errTouch != nil {
				return fmt.Errorf("failed to update document: %w", errTouch)
			}
		}

		return replaceObjects(tx, row.ID, doc)
	})
	if err != nil {
		return err
	}

	doc.New = false

	return nil
}

// replaceObjects drops the stored objects of the document and writes the current ones.
func replaceObjects(tx *gorm.DB, documentID uint64, doc *store.Document) error {
	objectIDs := tx.Model(&models.Object{}).Select("id").Where("document_id = ?", documentID)

	if err := tx.Where("object_id IN (?)", objectIDs).Delete(&models.ObjectProperty{}).Error; err != nil {
		return fmt.Errorf("failed to remove object properties: %w", err)
	}

	if err := tx.Where("document_id = ?", documentID).Delete(&models.Object{}).Error; err != nil {
		return fmt.Errorf("failed to remove objects: %w", err)
	}

	rows := fromDocument(documentID, doc)
	if len(rows) == 0 {
		return nil
	}

	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to write objects: %w", err)
	}

	return nil
}

// Exists implements store.Store.
func (s *Store) Exists(ctx context.Context, ref store.Reference) (bool, error) {
	var count int64

	err := s.db.WithContext(ctx).Model(&models.Document{}).
		Where(whereDocumentRef, ref.Wiki, ref.Space, ref.Name).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check document %s: %w", ref, err)
	}

	return count > 0, nil
}

// Search implements store.Store.
func (s *Store) Search(ctx context.Context, q store.Query) ([]store.Reference, error) {
	var rows []struct {
		Wiki  string
		Space string
		Name  string
	}

	query := s.db.WithContext(ctx).Model(&models.Document{}).
		Distinct("documents.wiki", "documents.space", "documents.name").
		Joins("JOIN objects ON objects.document_id = documents.id").
		Joins("JOIN object_properties ON object_properties.object_id = objects.id").
		Where("documents.wiki = ? AND objects.class = ? AND object_properties.name = ?", q.Wiki, q.Class, q.Field)

	if q.FoldCase {
		query = query.Where("LOWER(object_properties.value) = LOWER(?)", q.Value)
	} else {
		query = query.Where("object_properties.value = ?", q.Value)
	}

	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	refs := make([]store.Reference, len(rows))
	for i, row := range rows {
		refs[i] = store.Reference{Wiki: row.Wiki, Space: row.Space, Name: row.Name}
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].FullName() < refs[j].FullName() })

	return refs, nil
}

func toDocument(row *models.Document) *store.Document {
	doc := store.NewDocument(store.Reference{Wiki: row.Wiki, Space: row.Space, Name: row.Name})
	doc.New = false

	for _, obj := range row.Objects {
		props := make(store.Object, len(obj.Properties))
		for _, p := range obj.Properties {
			props[p.Name] = p.Value
		}

		doc.AddObject(obj.Class, props)
	}

	return doc
}

func fromDocument(documentID uint64, doc *store.Document) []models.Object {
	classes := make([]string, 0, len(doc.Objects))
	for class := range doc.Objects {
		classes = append(classes, class)
	}

	sort.Strings(classes)

	var rows []models.Object

	for _, class := range classes {
		for number, obj := range doc.Objects[class] {
			row := models.Object{DocumentID: documentID, Class: class, Number: number}

			for name, value := range obj {
				row.Properties = append(row.Properties, models.ObjectProperty{Name: name, Value: value})
			}

			rows = append(rows, row)
		}
	}

	return rows
}
