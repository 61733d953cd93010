package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/temirov/stacrelease/internal/utils"
)

const (
	// DefaultStacVersion is written into the root catalog.
	DefaultStacVersion = "1.1.0"
	// DefaultItemsDirectory is the per-collection directory receiving item files.
	DefaultItemsDirectory = "items"
	// CatalogFileName is the root catalog file name.
	CatalogFileName = "catalog.json"
	// CollectionFileName is the file name of every collection.
	CollectionFileName = "collection.json"

	itemFileExtension = ".json"

	fieldDescription = "description"
	fieldLicense     = "license"
	fieldKeywords    = "keywords"

	logBuildStarted       = "building catalog"
	logCollectionRead     = "read collection"
	logCollectionSkipped  = "skipping collection"
	logRemoteItemKept     = "keeping remote item link"
	logCatalogWritten     = "catalog written"
	skipReasonMissing     = "collection.json not found"
	skipReasonWrongType   = "not a STAC collection"
	errorRootFormat       = "catalog root %s: %w"
	errorMetadataRequired = "catalog %s is required"
)

var (
	// ErrCatalogRootNotFound reports a release root that is missing or not a directory.
	ErrCatalogRootNotFound = errors.New("catalog root not found")
	// ErrInvalidMetadata reports incomplete root catalog metadata.
	ErrInvalidMetadata = errors.New("invalid catalog metadata")
)

// Metadata describes the root catalog and the collections it links.
type Metadata struct {
	ID             string
	Title          string
	Description    string
	License        string
	StacVersion    string
	PublishedURL   string
	Keywords       []string
	Collections    []string
	ItemsDirectory string
}

// Validate checks the fields a STAC catalog cannot do without.
func (metadata Metadata) Validate() error {
	if metadata.ID == "" {
		return fmt.Errorf("%w: "+errorMetadataRequired, ErrInvalidMetadata, "id")
	}
	if metadata.Description == "" {
		return fmt.Errorf("%w: "+errorMetadataRequired, ErrInvalidMetadata, "description")
	}
	if metadata.ItemsDirectory != "" {
		if nameError := utils.ValidateName(metadata.ItemsDirectory); nameError != nil {
			return fmt.Errorf("%w: items directory: %v", ErrInvalidMetadata, nameError)
		}
	}
	return nil
}

// SkippedCollection is a configured collection that was left out of the catalog.
type SkippedCollection struct {
	ID     string
	Reason string
}

// BuildReport summarizes one catalog build.
type BuildReport struct {
	CatalogPath string
	Collections []string
	Items       int
	Skipped     []SkippedCollection
}

// Builder writes a self-contained catalog whose root is anchored at a published URL.
type Builder struct {
	metadata Metadata
	logger   *zap.Logger
}

// NewBuilder constructs a Builder, filling in the default STAC version and items directory.
func NewBuilder(metadata Metadata, logger *zap.Logger) *Builder {
	if metadata.StacVersion == "" {
		metadata.StacVersion = DefaultStacVersion
	}
	if metadata.ItemsDirectory == "" {
		metadata.ItemsDirectory = DefaultItemsDirectory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{metadata: metadata, logger: logger}
}

// Build reads every configured collection under root, moves their items into the items
// directory, rewrites hierarchy links as relative hrefs and writes root/catalog.json.
// Collections that are missing or unreadable are skipped with a warning.
func (builder *Builder) Build(ctx context.Context, root string) (BuildReport, error) {
	if metadataError := builder.metadata.Validate(); metadataError != nil {
		return BuildReport{}, metadataError
	}
	absoluteRoot, rootError := checkRoot(root)
	if rootError != nil {
		return BuildReport{}, rootError
	}

	catalogPath := filepath.Join(absoluteRoot, CatalogFileName)
	report := BuildReport{CatalogPath: catalogPath}
	builder.logger.Info(logBuildStarted, zap.String("id", builder.metadata.ID), zap.String("root", absoluteRoot))

	rootCatalog := builder.newRootCatalog()
	collectionIDs := utils.DeduplicateNames(builder.metadata.Collections)
	sort.Strings(collectionIDs)

	for _, collectionID := range collectionIDs {
		if contextError := ctx.Err(); contextError != nil {
			return report, contextError
		}
		collectionPath, joinError := utils.SafeJoin(absoluteRoot, collectionID, CollectionFileName)
		if joinError != nil {
			builder.skip(&report, collectionID, joinError.Error())
			continue
		}
		collection, itemCount, collectionError := builder.rewriteCollection(catalogPath, collectionPath)
		if collectionError != nil {
			reason := collectionError.Error()
			if errors.Is(collectionError, fs.ErrNotExist) {
				reason = skipReasonMissing
			}
			builder.skip(&report, collectionID, reason)
			continue
		}
		rootCatalog.Links = append(rootCatalog.Links, Link{
			Rel:   RelChild,
			Href:  relativeHref(absoluteRoot, collectionPath),
			Type:  MediaTypeJSON,
			Title: collection.String(fieldTitle),
		})
		report.Collections = append(report.Collections, collectionID)
		report.Items += itemCount
		builder.logger.Info(logCollectionRead, zap.String("collection", collectionID), zap.Int("items", itemCount))
	}

	if builder.metadata.PublishedURL != "" {
		rootCatalog.SetLink(Link{Rel: RelSelf, Href: builder.metadata.PublishedURL, Type: MediaTypeJSON})
	}
	if writeError := rootCatalog.WriteFile(catalogPath); writeError != nil {
		return report, writeError
	}
	builder.logger.Info(logCatalogWritten,
		zap.String("path", catalogPath),
		zap.Int("collections", len(report.Collections)),
		zap.Int("items", report.Items),
	)
	return report, nil
}

func (builder *Builder) newRootCatalog() *Object {
	rootCatalog := NewObject(TypeCatalog)
	rootCatalog.SetValue(fieldStacVersion, builder.metadata.StacVersion)
	rootCatalog.SetValue(fieldID, builder.metadata.ID)
	rootCatalog.SetValue(fieldDescription, builder.metadata.Description)
	if builder.metadata.Title != "" {
		rootCatalog.SetValue(fieldTitle, builder.metadata.Title)
	}
	if builder.metadata.License != "" {
		rootCatalog.SetValue(fieldLicense, builder.metadata.License)
	}
	if keywords := utils.DeduplicateNames(builder.metadata.Keywords); len(keywords) > 0 {
		rootCatalog.SetValue(fieldKeywords, keywords)
	}
	rootCatalog.Links = []Link{{
		Rel:   RelRoot,
		Href:  currentDirectoryPrefix + CatalogFileName,
		Type:  MediaTypeJSON,
		Title: builder.metadata.Title,
	}}
	return rootCatalog
}

func (builder *Builder) skip(report *BuildReport, collectionID, reason string) {
	builder.logger.Warn(logCollectionSkipped, zap.String("collection", collectionID), zap.String("reason", reason))
	report.Skipped = append(report.Skipped, SkippedCollection{ID: collectionID, Reason: reason})
}

type relocatedItem struct {
	item *Object
	path string
}

// rewriteCollection reads every item before writing anything, so a broken item leaves the
// collection untouched.
func (builder *Builder) rewriteCollection(catalogPath, collectionPath string) (*Object, int, error) {
	collection, readError := ReadObject(collectionPath)
	if readError != nil {
		return nil, 0, readError
	}
	if collection.Type() != TypeCollection {
		return nil, 0, errors.New(skipReasonWrongType)
	}

	collectionDirectory := filepath.Dir(collectionPath)
	itemsDirectory := filepath.Join(collectionDirectory, builder.metadata.ItemsDirectory)

	var relocated []relocatedItem
	for index, link := range collection.Links {
		if link.Rel != RelItem {
			continue
		}
		if isRemote(link.Href) {
			builder.logger.Warn(logRemoteItemKept, zap.String("href", link.Href))
			continue
		}
		oldPath := resolveHref(collectionDirectory, link.Href)
		item, itemError := ReadObject(oldPath)
		if itemError != nil {
			return nil, 0, fmt.Errorf("item %s: %w", link.Href, itemError)
		}
		itemID := item.ID()
		if nameError := utils.ValidateName(itemID); nameError != nil {
			return nil, 0, fmt.Errorf("item %s id: %w", link.Href, nameError)
		}
		newPath := filepath.Join(itemsDirectory, itemID+itemFileExtension)
		rewriteItem(item, filepath.Dir(oldPath), filepath.Dir(newPath), catalogPath, collectionPath)
		relocated = append(relocated, relocatedItem{item: item, path: newPath})

		collection.Links[index].Href = relativeHref(collectionDirectory, newPath)
		if collection.Links[index].Type == "" {
			collection.Links[index].Type = MediaTypeGeoJSON
		}
	}

	collection.RemoveLinks(RelSelf)
	collection.SetLink(Link{Rel: RelRoot, Href: relativeHref(collectionDirectory, catalogPath), Type: MediaTypeJSON})
	collection.SetLink(Link{Rel: RelParent, Href: relativeHref(collectionDirectory, catalogPath), Type: MediaTypeJSON})

	for _, entry := range relocated {
		if writeError := entry.item.WriteFile(entry.path); writeError != nil {
			return nil, 0, writeError
		}
	}
	if writeError := collection.WriteFile(collectionPath); writeError != nil {
		return nil, 0, writeError
	}
	return collection, len(relocated), nil
}

// rewriteItem points the hierarchy links of an item moving from oldDirectory to newDirectory
// at the catalog and collection and rebases its other relative hrefs.
func rewriteItem(item *Object, oldDirectory, newDirectory, catalogPath, collectionPath string) {
	item.RemoveLinks(RelSelf, RelRoot, RelParent, RelCollection)
	for index := range item.Links {
		item.Links[index].Href = rebaseHref(item.Links[index].Href, oldDirectory, newDirectory)
	}
	item.Links = append(item.Links,
		Link{Rel: RelRoot, Href: relativeHref(newDirectory, catalogPath), Type: MediaTypeJSON},
		Link{Rel: RelParent, Href: relativeHref(newDirectory, collectionPath), Type: MediaTypeJSON},
		Link{Rel: RelCollection, Href: relativeHref(newDirectory, collectionPath), Type: MediaTypeJSON},
	)

	assets := map[string]map[string]json.RawMessage{}
	if decodeError := item.Decode(fieldAssets, &assets); decodeError != nil {
		return
	}
	for _, asset := range assets {
		var href string
		if hrefError := json.Unmarshal(asset[fieldHref], &href); hrefError != nil {
			continue
		}
		rebased, encodeError := json.Marshal(rebaseHref(href, oldDirectory, newDirectory))
		if encodeError != nil {
			continue
		}
		asset[fieldHref] = rebased
	}
	item.SetValue(fieldAssets, assets)
}

func checkRoot(root string) (string, error) {
	absoluteRoot, absoluteError := filepath.Abs(root)
	if absoluteError != nil {
		return "", fmt.Errorf(errorRootFormat, root, absoluteError)
	}
	rootInfo, statError := os.Stat(absoluteRoot)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return "", fmt.Errorf(errorRootFormat, absoluteRoot, ErrCatalogRootNotFound)
		}
		return "", fmt.Errorf(errorRootFormat, absoluteRoot, statError)
	}
	if !rootInfo.IsDir() {
		return "", fmt.Errorf(errorRootFormat, absoluteRoot, ErrCatalogRootNotFound)
	}
	return absoluteRoot, nil
}
