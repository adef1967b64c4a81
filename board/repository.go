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

	"github.com/tomoncle/postboard/database"
	"github.com/tomoncle/postboard/model"
	"github.com/tomoncle/postboard/repository"
	"github.com/tomoncle/postboard/types"
)

const postRelation = "post_id"

// CommentRepository adds post scoped reads to the comment repository.
type CommentRepository interface {
	repository.Repository[model.Comment]
	FindAllByPost(ctx context.Context, post *model.Post) ([]*model.Comment, error)
}

type commentRepository struct {
	repository.Repository[model.Comment]
}

func NewCommentRepository(uow database.UnitOfWork) CommentRepository {
	return &commentRepository{
		Repository: repository.NewRepository[model.Comment](uow,
			repository.WithRelation(postRelation),
			repository.WithDefaultOrder(types.Asc("created_at"), types.Asc("id")),
		),
	}
}

func (r *commentRepository) FindAllByPost(ctx context.Context, post *model.Post) ([]*model.Comment, error) {
	if post == nil {
		return nil, types.NewIllegalStateError("find_all_by_post", "nil post")
	}
	return r.FindByRelation(ctx, post.ID)
}

// FileRepository adds post scoped and stored-name reads to the attachment
// repository.
type FileRepository interface {
	repository.Repository[model.FileEntity]
	FindAllByPost(ctx context.Context, post *model.Post) ([]*model.FileEntity, error)
	FindByStoredName(ctx context.Context, storedName string) (*model.FileEntity, error)
}

type fileRepository struct {
	repository.Repository[model.FileEntity]
}

func NewFileRepository(uow database.UnitOfWork) FileRepository {
	return &fileRepository{
		Repository: repository.NewRepository[model.FileEntity](uow, repository.WithRelation(postRelation)),
	}
}

func (r *fileRepository) FindAllByPost(ctx context.Context, post *model.Post) ([]*model.FileEntity, error) {
	if post == nil {
		return nil, types.NewIllegalStateError("find_all_by_post", "nil post")
	}
	return r.FindByRelation(ctx, post.ID)
}

func (r *fileRepository) FindByStoredName(ctx context.Context, storedName string) (*model.FileEntity, error) {
	files, err := r.List(ctx, types.NewQueryFilter(types.Eq("stored_name", storedName)))
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return files[0], nil
}
