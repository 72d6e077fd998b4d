package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// QuestionController handles question answering.
type QuestionController struct {
	BaseController
}

type askQuestionRequest struct {
	Question string `json:"question"`
}

// Ask 处理POST /ask-question/
// 成功返回{status, question, answer}，失败返回错误信封
func (c *QuestionController) Ask() {
	var req askQuestionRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		c.JSONError(http.StatusBadRequest, "question is required")
		return
	}

	answer, err := qaService.AskQuestion(c.Ctx.Request.Context(), c.sessionID(), question)
	if err != nil {
		c.JSONPipelineError(err)
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "success",
		"question": question,
		"answer":   answer,
	})
}
