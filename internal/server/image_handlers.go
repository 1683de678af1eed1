package server

import (
	"io"

	"picshare/internal/models"
	"picshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetImages handles GET /api/images
// @Summary List images
// @Description Public images plus the caller's own, newest first
// @Tags images
// @Produce json
// @Param page query int false "Page (from 1)"
// @Param limit query int false "Page size (max 100)"
// @Param category query int false "Category id"
// @Param tags query string false "Comma separated tags, all must match"
// @Success 200 {object} models.ImagePage
// @Router /images [get]
func (s *Server) GetImages(c *fiber.Ctx) error {
	viewerID := s.optionalUserID(c)
	page, limit := parsePage(c)

	categoryID := 0
	if raw := c.Query("category"); raw != "" {
		categoryID = c.QueryInt("category", -1)
		if categoryID <= 0 {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid category"))
		}
	}

	res, err := s.imageService.ListImages(c.UserContext(), service.ListImagesInput{
		ViewerID:   viewerID,
		CategoryID: uint(categoryID),
		Tags:       parseTagsQuery(c),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// GetImage handles GET /api/images/:id
// @Summary Get an image
// @Tags images
// @Produce json
// @Param id path int true "Image id"
// @Success 200 {object} models.Image
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{id} [get]
func (s *Server) GetImage(c *fiber.Ctx) error {
	imageID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	img, err := s.imageService.GetImage(c.UserContext(), s.optionalUserID(c), imageID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(img)
}

// UploadImage handles POST /api/images
// @Summary Upload an image
// @Tags images
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param image formData file true "Image file (jpeg, png, gif, webp)"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param tags formData string false "Tags as JSON array or comma list"
// @Param categories formData string false "Category ids as JSON array or comma list"
// @Param is_public formData bool false "Visible to everyone (default true)"
// @Success 201 {object} models.Image
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /images [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}
	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	categoryIDs, err := parseIDList(c.FormValue("categories"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	isPublic, err := parseOptionalBool(c.FormValue("is_public"), "is_public")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	img, err := s.imageService.UploadImage(c.UserContext(), service.UploadImageInput{
		UserID:      userID,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Tags:        models.ParseTagList(c.FormValue("tags")),
		CategoryIDs: categoryIDs,
		IsPublic:    isPublic,
		Filename:    file.Filename,
		Content:     content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(img)
}

// UpdateImage handles PUT /api/images/:id
// @Summary Update an image's metadata
// @Description Omitted fields are kept. A categories array replaces the whole set.
// @Tags images
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Image id"
// @Param request body object{title=string,description=string,tags=[]string,categories=[]int,is_public=bool} true "Fields to change"
// @Success 200 {object} models.Image
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{id} [put]
func (s *Server) UpdateImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	imageID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		Tags        *[]string `json:"tags"`
		Categories  *[]uint   `json:"categories"`
		IsPublic    *bool     `json:"is_public"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	img, err := s.imageService.UpdateImage(c.UserContext(), service.UpdateImageInput{
		UserID:      userID,
		ImageID:     imageID,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
		CategoryIDs: req.Categories,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(img)
}

// DeleteImage handles DELETE /api/images/:id
// @Summary Delete an image
// @Tags images
// @Produce json
// @Security BearerAuth
// @Param id path int true "Image id"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{id} [delete]
func (s *Server) DeleteImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	imageID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.imageService.DeleteImage(c.UserContext(), userID, imageID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return messageResponse(c, "Image deleted")
}

// GetUserImages handles GET /api/users/:userId/images
// @Summary List a user's images
// @Tags images
// @Produce json
// @Param userId path int true "User id"
// @Param page query int false "Page (from 1)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} models.ImagePage
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{userId}/images [get]
func (s *Server) GetUserImages(c *fiber.Ctx) error {
	ownerID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	page, limit := parsePage(c)

	res, err := s.imageService.ListUserImages(c.UserContext(), s.optionalUserID(c), ownerID, page, limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}
