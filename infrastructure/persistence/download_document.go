package persistence

import (
	"time"

	"downloader/domain/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// downloadDocument is the BSON shape of a Download in the downloads collection.
type downloadDocument struct {
	ID               bson.ObjectID `bson:"_id,omitempty"`
	UserID           string        `bson:"userId"`
	FileName         string        `bson:"fileName"`
	OriginalFileName string        `bson:"originalFileName"`
	FileType         string        `bson:"fileType"`
	FormatID         string        `bson:"formatId,omitempty"`
	FilePath         string        `bson:"filePath"`
	FileSize         int64         `bson:"fileSize,omitempty"`
	YoutubeURL       string        `bson:"youtubeUrl"`
	YoutubeTitle     string        `bson:"youtubeTitle,omitempty"`
	YoutubeThumbnail string        `bson:"youtubeThumbnail,omitempty"`
	Status           string        `bson:"status"`
	Error            string        `bson:"error,omitempty"`
	ExpiresAt        time.Time     `bson:"expiresAt"`
	DownloadedAt     time.Time     `bson:"downloadedAt"`
	CreatedAt        time.Time     `bson:"createdAt"`
	UpdatedAt        time.Time     `bson:"updatedAt"`
}

func newDownloadDocument(d *model.Download) downloadDocument {
	return downloadDocument{
		UserID:           d.UserID,
		FileName:         d.FileName,
		OriginalFileName: d.OriginalFileName,
		FileType:         string(d.FileType),
		FormatID:         d.FormatID,
		FilePath:         d.FilePath,
		FileSize:         d.FileSize,
		YoutubeURL:       d.YoutubeURL,
		YoutubeTitle:     d.YoutubeTitle,
		YoutubeThumbnail: d.YoutubeThumbnail,
		Status:           string(d.Status),
		Error:            d.Error,
		ExpiresAt:        d.ExpiresAt,
		DownloadedAt:     d.DownloadedAt,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func (doc downloadDocument) toModel() *model.Download {
	return &model.Download{
		ID:               doc.ID.Hex(),
		UserID:           doc.UserID,
		FileName:         doc.FileName,
		OriginalFileName: doc.OriginalFileName,
		FileType:         model.DownloadType(doc.FileType),
		FormatID:         doc.FormatID,
		FilePath:         doc.FilePath,
		FileSize:         doc.FileSize,
		YoutubeURL:       doc.YoutubeURL,
		YoutubeTitle:     doc.YoutubeTitle,
		YoutubeThumbnail: doc.YoutubeThumbnail,
		Status:           model.DownloadStatus(doc.Status),
		Error:            doc.Error,
		ExpiresAt:        doc.ExpiresAt,
		DownloadedAt:     doc.DownloadedAt,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

type tokenDocument struct {
	AccessToken  string    `bson:"accessToken"`
	RefreshToken string    `bson:"refreshToken"`
	ExpiresIn    int64     `bson:"expiresIn"`
	TokenExpiry  time.Time `bson:"tokenExpiry"`
}

type userDocument struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	GoogleID       string        `bson:"googleId"`
	Name           string        `bson:"name"`
	Email          string        `bson:"email"`
	ProfilePicture string        `bson:"profilePicture,omitempty"`
	Tokens         tokenDocument `bson:"tokens"`
	LastLogin      time.Time     `bson:"lastLogin"`
	CreatedAt      time.Time     `bson:"createdAt"`
	UpdatedAt      time.Time     `bson:"updatedAt"`
}

func (doc userDocument) toModel() *model.User {
	return &model.User{
		ID:             doc.ID.Hex(),
		GoogleID:       doc.GoogleID,
		Name:           doc.Name,
		Email:          doc.Email,
		ProfilePicture: doc.ProfilePicture,
		Tokens: model.TokenBundle{
			AccessToken:  doc.Tokens.AccessToken,
			RefreshToken: doc.Tokens.RefreshToken,
			ExpiresIn:    doc.Tokens.ExpiresIn,
			TokenExpiry:  doc.Tokens.TokenExpiry,
		},
		LastLogin: doc.LastLogin,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func newTokenDocument(t model.TokenBundle) tokenDocument {
	return tokenDocument{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
		TokenExpiry:  t.TokenExpiry,
	}
}
