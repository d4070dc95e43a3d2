package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/letsssgooo/chembot/internal/auth"
	"github.com/letsssgooo/chembot/internal/domain/models"
	"github.com/letsssgooo/chembot/internal/storage"
)

// Названия листов еженедельного отчёта.
const (
	sheetSummary         = "الملخص التنفيذي"
	sheetUserProgress    = "تقدم المستخدمين"
	sheetGrades          = "الأداء حسب الصف"
	sheetDifficult       = "الأسئلة الصعبة"
	sheetRecommendations = "التوصيات"
)

// Service формирует еженедельный Excel отчёт по результатам квизов
// и рассылает его по почте.
type Service struct {
	storage storage.Storage
	mailer  *Mailer // nil — почта не настроена
}

// New создаёт сервис отчётов. mailer может быть nil, тогда Email — no-op.
func New(st storage.Storage, mailer *Mailer) *Service {
	return &Service{storage: st, mailer: mailer}
}

// Generate собирает отчёт за период [since, until) и возвращает имя
// файла и содержимое xlsx.
func (s *Service) Generate(ctx context.Context, since, until time.Time) (string, []byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := s.writeSummary(ctx, f, since, until); err != nil {
		return "", nil, fmt.Errorf("failed to build summary sheet: %w", err)
	}

	progress, err := s.userProgress(ctx, since, until)
	if err != nil {
		return "", nil, fmt.Errorf("failed to compute user progress: %w", err)
	}
	if err := writeUserProgress(f, progress); err != nil {
		return "", nil, fmt.Errorf("failed to build progress sheet: %w", err)
	}

	grades, err := s.storage.GradeAverages(ctx, since, until)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load grade averages: %w", err)
	}
	if err := writeGrades(f, grades); err != nil {
		return "", nil, fmt.Errorf("failed to build grades sheet: %w", err)
	}

	difficult, err := s.storage.DifficultQuestions(ctx, since, until, 20)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load difficult questions: %w", err)
	}
	if err := writeDifficult(f, difficult); err != nil {
		return "", nil, fmt.Errorf("failed to build difficult questions sheet: %w", err)
	}

	if err := writeRecommendations(f, progress, grades, difficult); err != nil {
		return "", nil, fmt.Errorf("failed to build recommendations sheet: %w", err)
	}

	// Лист по умолчанию больше не нужен.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return "", nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	fileName := fmt.Sprintf("weekly_report_%s.xlsx", until.Format("2006-01-02"))
	return fileName, buf.Bytes(), nil
}

// Email отправляет готовый отчёт по почте. Без настроенной почты — no-op.
func (s *Service) Email(fileName string, data []byte) error {
	if s.mailer == nil {
		return nil
	}

	subject := "التقرير الأسبوعي لبوت اختبارات الكيمياء"
	body := "مرفق التقرير الأسبوعي لنتائج الاختبارات."

	return s.mailer.Send(subject, body, fileName, data)
}

// writeSummary заполняет лист с общими агрегатами и диаграммой
// распределения результатов.
func (s *Service) writeSummary(ctx context.Context, f *excelize.File, since, until time.Time) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}

	stats, err := s.storage.Overview(ctx, since, until)
	if err != nil {
		return err
	}

	rows := [][]interface{}{
		{"الفترة", fmt.Sprintf("%s — %s", since.Format("2006-01-02"), until.Format("2006-01-02"))},
		{"مستخدمون نشطون", stats.ActiveUsers},
		{"اختبارات مكتملة", stats.TotalQuizzes},
		{"متوسط النتيجة %", stats.AverageScore},
		{"متوسط مدة الاختبار (دقيقة)", stats.AverageDuration.Minutes()},
		{"نسبة الإكمال %", stats.CompletionRate},
		{"اختبارات لكل مستخدم", stats.QuizzesPerUser},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return err
		}
	}

	buckets, err := s.storage.ScoreDistribution(ctx, since, until)
	if err != nil {
		return err
	}

	// Данные корзин под диаграмму.
	start := len(rows) + 2
	for i, bucket := range buckets {
		cell, err := excelize.CoordinatesToCellName(1, start+i)
		if err != nil {
			return err
		}
		row := []interface{}{bucket.Label, bucket.Count}
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return err
		}
	}

	if len(buckets) == 0 {
		return nil
	}

	chart := &excelize.Chart{
		Type:  excelize.Col,
		Title: []excelize.RichTextRun{{Text: "توزيع النتائج"}},
		Series: []excelize.ChartSeries{{
			Name: fmt.Sprintf("'%s'!$B$%d", sheetSummary, start),
			Categories: fmt.Sprintf("'%s'!$A$%d:$A$%d",
				sheetSummary, start, start+len(buckets)-1),
			Values: fmt.Sprintf("'%s'!$B$%d:$B$%d",
				sheetSummary, start, start+len(buckets)-1),
		}},
	}

	return f.AddChart(sheetSummary, "D2", chart)
}

// userProgress объединяет агрегаты текущей и предыдущей недели
// в строки с динамикой.
func (s *Service) userProgress(ctx context.Context, since, until time.Time) ([]models.UserProgress, error) {
	current, err := s.storage.UserAverages(ctx, since, until)
	if err != nil {
		return nil, err
	}

	period := until.Sub(since)
	previous, err := s.storage.UserAverages(ctx, since.Add(-period), since)
	if err != nil {
		return nil, err
	}

	prevByUser := make(map[int64]models.UserProgress, len(previous))
	for _, p := range previous {
		prevByUser[p.UserID] = p
	}

	for i := range current {
		prev, ok := prevByUser[current[i].UserID]
		if !ok {
			current[i].Trend = "جديد"
			continue
		}

		current[i].PrevPercent = prev.AveragePercent
		current[i].Delta = current[i].AveragePercent - prev.AveragePercent

		switch {
		case current[i].Delta > 1:
			current[i].Trend = "تحسن 📈"
		case current[i].Delta < -1:
			current[i].Trend = "تراجع 📉"
		default:
			current[i].Trend = "ثابت"
		}
	}

	return current, nil
}

func writeUserProgress(f *excelize.File, progress []models.UserProgress) error {
	if _, err := f.NewSheet(sheetUserProgress); err != nil {
		return err
	}

	header := []interface{}{"الاسم", "الصف", "عدد الاختبارات", "المتوسط %", "الأسبوع السابق %", "الفرق", "الاتجاه"}
	if err := f.SetSheetRow(sheetUserProgress, "A1", &header); err != nil {
		return err
	}

	for i, p := range progress {
		gradeLabel, _ := auth.GradeLabel(p.Grade)
		row := []interface{}{p.FullName, gradeLabel, p.QuizCount, p.AveragePercent, p.PrevPercent, p.Delta, p.Trend}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetUserProgress, cell, &row); err != nil {
			return err
		}
	}

	return nil
}

func writeGrades(f *excelize.File, grades []models.GradeStat) error {
	if _, err := f.NewSheet(sheetGrades); err != nil {
		return err
	}

	header := []interface{}{"الصف", "عدد الطلاب", "عدد الاختبارات", "المتوسط %"}
	if err := f.SetSheetRow(sheetGrades, "A1", &header); err != nil {
		return err
	}

	for i, g := range grades {
		label, ok := auth.GradeLabel(g.Grade)
		if !ok {
			label = g.Grade
		}
		row := []interface{}{label, g.UserCount, g.QuizCount, g.AveragePercent}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetGrades, cell, &row); err != nil {
			return err
		}
	}

	if len(grades) == 0 {
		return nil
	}

	chart := &excelize.Chart{
		Type:  excelize.Bar,
		Title: []excelize.RichTextRun{{Text: "متوسط النتيجة حسب الصف"}},
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$D$1", sheetGrades),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheetGrades, len(grades)+1),
			Values:     fmt.Sprintf("'%s'!$D$2:$D$%d", sheetGrades, len(grades)+1),
		}},
	}

	return f.AddChart(sheetGrades, "F2", chart)
}

func writeDifficult(f *excelize.File, questions []models.DifficultQuestion) error {
	if _, err := f.NewSheet(sheetDifficult); err != nil {
		return err
	}

	header := []interface{}{"رقم السؤال", "نص السؤال", "عدد المحاولات", "نسبة الخطأ %"}
	if err := f.SetSheetRow(sheetDifficult, "A1", &header); err != nil {
		return err
	}

	for i, q := range questions {
		row := []interface{}{q.QuestionID, q.Text, q.Attempts, q.WrongRate}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetDifficult, cell, &row); err != nil {
			return err
		}
	}

	return nil
}

// writeRecommendations формирует текстовые рекомендации по простым
// правилам над агрегатами недели.
func writeRecommendations(
	f *excelize.File,
	progress []models.UserProgress,
	grades []models.GradeStat,
	difficult []models.DifficultQuestion,
) error {
	if _, err := f.NewSheet(sheetRecommendations); err != nil {
		return err
	}

	var lines []string

	declining := 0
	for _, p := range progress {
		if p.Delta < -1 {
			declining++
		}
	}
	if declining > 0 {
		lines = append(lines, fmt.Sprintf("%d مستخدماً تراجع متوسطه عن الأسبوع السابق — يُنصح بمتابعتهم.", declining))
	}

	for _, g := range grades {
		if g.QuizCount > 0 && g.AveragePercent < 50 {
			label, ok := auth.GradeLabel(g.Grade)
			if !ok {
				label = g.Grade
			}
			lines = append(lines, fmt.Sprintf("متوسط صف %q أقل من 50%% (%.1f%%) — يحتاج محتوى داعماً.", label, g.AveragePercent))
		}
	}

	if len(difficult) > 0 {
		lines = append(lines, fmt.Sprintf("أصعب سؤال هذا الأسبوع: «%s» بنسبة خطأ %.0f%% — راجع صياغته أو شرحه.",
			difficult[0].Text, difficult[0].WrongRate))
	}

	if len(lines) == 0 {
		lines = append(lines, "لا توجد ملاحظات هذا الأسبوع — الأداء مستقر.")
	}

	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := []interface{}{line}
		if err := f.SetSheetRow(sheetRecommendations, cell, &row); err != nil {
			return err
		}
	}

	return nil
}
