package controller

import (
	"post-editor-be/internal/dto"
	"post-editor-be/internal/pkg/serverutils"
	"post-editor-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IEditorController interface {
	RegisterRoutes(r fiber.Router)
	Open(ctx *fiber.Ctx) error
	State(ctx *fiber.Ctx) error
	Dispatch(ctx *fiber.Ctx) error
	SetSelection(ctx *fiber.Ctx) error
	Undo(ctx *fiber.Ctx) error
	Redo(ctx *fiber.Ctx) error
	Resizer(ctx *fiber.Ctx) error
	Save(ctx *fiber.Ctx) error
	Close(ctx *fiber.Ctx) error
	RenderPost(ctx *fiber.Ctx) error
}

type editorController struct {
	editorService service.IEditorService
	jwtSecret     string
}

func NewEditorController(editorService service.IEditorService, jwtSecret string) IEditorController {
	return &editorController{
		editorService: editorService,
		jwtSecret:     jwtSecret,
	}
}

func (c *editorController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/editor/v1/sessions")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Post("", c.Open)
	h.Get(":id", c.State)
	h.Delete(":id", c.Close)
	h.Post(":id/commands", c.Dispatch)
	h.Put(":id/selection", c.SetSelection)
	h.Post(":id/undo", c.Undo)
	h.Post(":id/redo", c.Redo)
	h.Post(":id/resizer", c.Resizer)
	h.Post(":id/save", c.Save)

	p := r.Group("/posts/v1")
	p.Get(":id/render", c.RenderPost)
}

func (c *editorController) Open(ctx *fiber.Ctx) error {
	userId := serverutils.UserID(ctx)

	var req dto.OpenSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.editorService.Open(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success open editor session", res))
}

func (c *editorController) State(ctx *fiber.Ctx) error {
	res, err := c.editorService.State(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show editor state", res))
}

func (c *editorController) Dispatch(ctx *fiber.Ctx) error {
	var req dto.DispatchCommandRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.editorService.Dispatch(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success dispatch command", res))
}

func (c *editorController) SetSelection(ctx *fiber.Ctx) error {
	var req dto.SelectionDTO
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.editorService.SetSelection(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success set selection", res))
}

func (c *editorController) Undo(ctx *fiber.Ctx) error {
	res, err := c.editorService.Undo(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success undo", res))
}

func (c *editorController) Redo(ctx *fiber.Ctx) error {
	res, err := c.editorService.Redo(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success redo", res))
}

func (c *editorController) Resizer(ctx *fiber.Ctx) error {
	var req dto.ResizerRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.editorService.Resizer(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success drive image resizer", res))
}

func (c *editorController) Save(ctx *fiber.Ctx) error {
	var req dto.SavePostRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	res, err := c.editorService.Save(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success save post", res))
}

func (c *editorController) Close(ctx *fiber.Ctx) error {
	if err := c.editorService.Close(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success close editor session", nil))
}

// RenderPost is public: it serves the sanitized HTML of a saved post.
func (c *editorController) RenderPost(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid post id")
	}

	html, err := c.editorService.RenderPost(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.SendString(html)
}
