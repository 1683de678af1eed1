package server

import (
	"picshare/internal/models"
	"picshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /api/categories
// @Summary List categories
// @Description Public categories plus the caller's own
// @Tags categories
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.ListCategories(c.UserContext(), s.optionalUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(categories)
}

// CreateCategory handles POST /api/categories
// @Summary Create a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,description=string,is_public=bool} true "Category"
// @Success 201 {object} models.Category
// @Failure 400 {object} models.ErrorResponse
// @Router /categories [post]
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		IsPublic    *bool  `json:"is_public"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.CreateCategory(c.UserContext(), service.CreateCategoryInput{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// GetCategory handles GET /api/categories/:id
// @Summary Get a category with its visible images
// @Tags categories
// @Produce json
// @Param id path int true "Category id"
// @Success 200 {object} models.Category
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{id} [get]
func (s *Server) GetCategory(c *fiber.Ctx) error {
	categoryID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	category, err := s.categoryService.GetCategory(c.UserContext(), s.optionalUserID(c), categoryID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(category)
}

// UpdateCategory handles PUT /api/categories/:id
// @Summary Update a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category id"
// @Param request body object{name=string,description=string,is_public=bool} true "Fields to change"
// @Success 200 {object} models.Category
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{id} [put]
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	categoryID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		IsPublic    *bool   `json:"is_public"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.UpdateCategory(c.UserContext(), service.UpdateCategoryInput{
		UserID:      userID,
		CategoryID:  categoryID,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(category)
}

// DeleteCategory handles DELETE /api/categories/:id
// @Summary Delete a category
// @Description Images in the category are kept
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category id"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{id} [delete]
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	categoryID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.categoryService.DeleteCategory(c.UserContext(), userID, categoryID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return messageResponse(c, "Category deleted")
}

// AddImageToCategory handles POST /api/categories/:id/images
// @Summary Add an image to a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category id"
// @Param request body object{image_id=int} true "Image"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{id}/images [post]
func (s *Server) AddImageToCategory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	categoryID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		ImageID uint `json:"image_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.ImageID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("image_id is required"))
	}

	if err := s.categoryService.AddImageToCategory(c.UserContext(), userID, categoryID, req.ImageID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return messageResponse(c, "Image added to category")
}

// RemoveImageFromCategory handles DELETE /api/categories/:id/images/:imageId
// @Summary Remove an image from a category
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category id"
// @Param imageId path int true "Image id"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{id}/images/{imageId} [delete]
func (s *Server) RemoveImageFromCategory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	categoryID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	imageID, err := s.parseID(c, "imageId")
	if err != nil {
		return nil
	}

	if err := s.categoryService.RemoveImageFromCategory(c.UserContext(), userID, categoryID, imageID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return messageResponse(c, "Image removed from category")
}
