package mongo

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mookka/searchservice/internal/domain"
)

const defaultFindLimit = 20

// Catalog is the trusted local media catalog backed by one collection.
type Catalog struct {
	collection *mongo.Collection
}

type mediaDoc struct {
	ID             string   `bson:"_id"`
	ExternalID     string   `bson:"externalId,omitempty"`
	Title          string   `bson:"title"`
	Type           string   `bson:"type"`
	CoverImage     *string  `bson:"coverImage,omitempty"`
	Year           *int     `bson:"year,omitempty"`
	Rating         float64  `bson:"rating"`
	Genres         []string `bson:"genres,omitempty"`
	Author         *string  `bson:"author,omitempty"`
	Director       *string  `bson:"director,omitempty"`
	Description    string   `bson:"description,omitempty"`
	ReleaseDate    string   `bson:"releaseDate,omitempty"`
	RuntimeMinutes int      `bson:"runtimeMinutes,omitempty"`
	Seasons        int      `bson:"seasons,omitempty"`
	Episodes       int      `bson:"episodes,omitempty"`
	PageCount      int      `bson:"pageCount,omitempty"`
	Publisher      string   `bson:"publisher,omitempty"`
	Platforms      []string `bson:"platforms,omitempty"`
	Developers     []string `bson:"developers,omitempty"`
	Homepage       string   `bson:"homepage,omitempty"`
	Language       string   `bson:"language,omitempty"`
	UpdatedAt      int64    `bson:"updatedAt"`
}

func NewCatalog(client *mongo.Client, dbName, collectionName string) *Catalog {
	return &Catalog{collection: client.Database(dbName).Collection(collectionName)}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Catalog) EnsureIndexes(ctx context.Context) error {
	if c == nil || c.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "title", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "externalId", Value: 1}}},
		{Keys: bson.D{{Key: "rating", Value: -1}}},
	}
	_, err := c.collection.Indexes().CreateMany(ctx, models)
	return err
}

// FindByTypeAndText matches text case-insensitively inside the title,
// author or director of items of one type. Best rated items come first.
func (c *Catalog) FindByTypeAndText(ctx context.Context, mediaType domain.MediaType, text string, limit int) ([]domain.MediaSummary, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []domain.MediaSummary{}, nil
	}
	if limit <= 0 {
		limit = defaultFindLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "title", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := c.collection.Find(ctx, textFilter(mediaType, text), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []mediaDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]domain.MediaSummary, 0, len(docs))
	for _, doc := range docs {
		items = append(items, fromDoc(doc).MediaSummary)
	}
	return items, nil
}

// Get resolves id against both the catalog key and the external id.
func (c *Catalog) Get(ctx context.Context, mediaType domain.MediaType, id string) (domain.MediaDetail, error) {
	var doc mediaDoc
	err := c.collection.FindOne(ctx, idFilter(mediaType, strings.TrimSpace(id))).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.MediaDetail{}, domain.ErrNotFound
		}
		return domain.MediaDetail{}, err
	}
	return fromDoc(doc), nil
}

// Upsert stores or replaces one catalog entry. It is used by seeding only;
// search never writes to the catalog.
func (c *Catalog) Upsert(ctx context.Context, detail domain.MediaDetail) error {
	doc := toDoc(detail, time.Now().UTC())
	_, err := c.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func textFilter(mediaType domain.MediaType, text string) bson.M {
	pattern := bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"}
	return bson.M{
		"type": string(mediaType),
		"$or": bson.A{
			bson.M{"title": pattern},
			bson.M{"author": pattern},
			bson.M{"director": pattern},
		},
	}
}

func idFilter(mediaType domain.MediaType, id string) bson.M {
	return bson.M{
		"type": string(mediaType),
		"$or": bson.A{
			bson.M{"_id": id},
			bson.M{"externalId": id},
		},
	}
}

func toDoc(detail domain.MediaDetail, now time.Time) mediaDoc {
	id := strings.TrimSpace(detail.ID)
	if id == "" {
		id = string(detail.Type) + ":" + strings.TrimSpace(detail.ExternalID)
	}
	return mediaDoc{
		ID:             id,
		ExternalID:     strings.TrimSpace(detail.ExternalID),
		Title:          strings.TrimSpace(detail.Title),
		Type:           string(detail.Type),
		CoverImage:     detail.CoverImage,
		Year:           detail.Year,
		Rating:         detail.Rating,
		Genres:         detail.Genres,
		Author:         detail.Author,
		Director:       detail.Director,
		Description:    detail.Description,
		ReleaseDate:    detail.ReleaseDate,
		RuntimeMinutes: detail.RuntimeMinutes,
		Seasons:        detail.Seasons,
		Episodes:       detail.Episodes,
		PageCount:      detail.PageCount,
		Publisher:      detail.Publisher,
		Platforms:      detail.Platforms,
		Developers:     detail.Developers,
		Homepage:       detail.Homepage,
		Language:       detail.Language,
		UpdatedAt:      now.Unix(),
	}
}

func fromDoc(doc mediaDoc) domain.MediaDetail {
	genres := doc.Genres
	if genres == nil {
		genres = []string{}
	}
	return domain.MediaDetail{
		MediaSummary: domain.MediaSummary{
			ID:             doc.ID,
			ExternalID:     doc.ExternalID,
			Title:          doc.Title,
			Type:           domain.MediaType(doc.Type),
			CoverImage:     doc.CoverImage,
			Year:           doc.Year,
			Rating:         doc.Rating,
			Genres:         genres,
			Author:         doc.Author,
			Director:       doc.Director,
			FromLocalStore: true,
			Description:    doc.Description,
			PlatformCount:  len(doc.Platforms),
			Source:         "local",
		},
		ReleaseDate:    doc.ReleaseDate,
		RuntimeMinutes: doc.RuntimeMinutes,
		Seasons:        doc.Seasons,
		Episodes:       doc.Episodes,
		PageCount:      doc.PageCount,
		Publisher:      doc.Publisher,
		Platforms:      doc.Platforms,
		Developers:     doc.Developers,
		Homepage:       doc.Homepage,
		Language:       doc.Language,
	}
}
