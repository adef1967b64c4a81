/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package board

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tomoncle/postboard"
	"github.com/tomoncle/postboard/database"
	"github.com/tomoncle/postboard/model"
	"github.com/tomoncle/postboard/repository"
	"github.com/tomoncle/postboard/types"
)

// CommentService manages comments.
type CommentService interface {
	postboard.Service[model.Comment]
	// FindAllCommentsByPost returns the comments of post, then runs AfterFind.
	FindAllCommentsByPost(ctx context.Context, post *model.Post, callbacks ...postboard.Callback[model.Comment]) ([]*model.Comment, error)
}

type commentService struct {
	postboard.Service[model.Comment]
}

func NewCommentService(repo CommentRepository, tx database.Transactor, opts ...postboard.Option[model.Comment]) CommentService {
	return &commentService{Service: postboard.NewService[model.Comment](repo, tx, opts...)}
}

func (s *commentService) FindAllCommentsByPost(ctx context.Context, post *model.Post, callbacks ...postboard.Callback[model.Comment]) ([]*model.Comment, error) {
	if post == nil {
		return nil, types.NewIllegalStateError("find_all_comments_by_post", "nil post")
	}
	return s.FindByRelation(ctx, post.ID, callbacks...)
}

// ContactService stores contact form messages.
type ContactService interface {
	postboard.Service[model.UserMessage]
	SaveUserMessage(ctx context.Context, msg *model.UserMessage) error
}

type contactService struct {
	postboard.Service[model.UserMessage]
}

func NewContactService(repo repository.Repository[model.UserMessage], tx database.Transactor, opts ...postboard.Option[model.UserMessage]) ContactService {
	return &contactService{Service: postboard.NewService[model.UserMessage](repo, tx, opts...)}
}

func (s *contactService) SaveUserMessage(ctx context.Context, msg *model.UserMessage) error {
	if msg == nil {
		return types.NewIllegalStateError("save_user_message", "user message can't be nil")
	}
	return s.Save(ctx, msg)
}

// FileService manages post attachments.
type FileService interface {
	postboard.Service[model.FileEntity]
	// Attach records an attachment of post under a generated stored name
	// that keeps the extension of originalName.
	Attach(ctx context.Context, post *model.Post, originalName, contentType string, size int64) (*model.FileEntity, error)
	FindAllByPost(ctx context.Context, post *model.Post) ([]*model.FileEntity, error)
	FindByStoredName(ctx context.Context, storedName string) (*model.FileEntity, error)
}

type fileService struct {
	postboard.Service[model.FileEntity]
	files FileRepository
	tx    database.Transactor
}

func NewFileService(repo FileRepository, tx database.Transactor, opts ...postboard.Option[model.FileEntity]) FileService {
	return &fileService{
		Service: postboard.NewService[model.FileEntity](repo, tx, opts...),
		files:   repo,
		tx:      tx,
	}
}

func (s *fileService) Attach(ctx context.Context, post *model.Post, originalName, contentType string, size int64) (*model.FileEntity, error) {
	if post == nil || post.ID == 0 {
		return nil, types.NewIllegalStateError("attach", "attachment requires a saved post")
	}
	file := &model.FileEntity{
		PostID:       post.ID,
		OriginalName: filepath.Base(originalName),
		StoredName:   StoredName(originalName),
		ContentType:  contentType,
		Size:         size,
	}
	if err := s.Save(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *fileService) FindAllByPost(ctx context.Context, post *model.Post) ([]*model.FileEntity, error) {
	if post == nil {
		return nil, types.NewIllegalStateError("find_all_by_post", "nil post")
	}
	return s.FindByRelation(ctx, post.ID)
}

func (s *fileService) FindByStoredName(ctx context.Context, storedName string) (*model.FileEntity, error) {
	var file *model.FileEntity
	err := s.tx.Execute(ctx, database.ReadOnlyTx(), func(ctx context.Context) error {
		var err error
		file, err = s.files.FindByStoredName(ctx, storedName)
		return err
	})
	return file, err
}

// StoredName returns a random storage name keeping the lower-cased
// extension of originalName.
func StoredName(originalName string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
}
