package entity

// ResultShape определяет, в каком виде детектор отдал результат.
type ResultShape int

const (
	ShapeNone      ResultShape = iota // детекций нет
	ShapeColumnar                     // параллельные массивы координат/уверенностей/классов
	ShapePerObject                    // перечисление отдельных объектов-рамок
)

func (s ResultShape) String() string {
	switch s {
	case ShapeColumnar:
		return "columnar"
	case ShapePerObject:
		return "per_object"
	default:
		return "none"
	}
}

// HostCopier реализуют буферы, живущие на устройстве (GPU).
// Перед чтением их нужно скопировать в память хоста.
type HostCopier interface {
	CopyToHost() ([]any, error)
}

// Lister реализуют массивы, которые умеют превращаться в обычный список.
type Lister interface {
	ToList() ([]any, error)
}

// Columns: колоночное представление: строки XYXY, Conf и Cls связаны по индексу.
// Значения непрозрачны: HostCopier, Lister, срез или массив.
type Columns struct {
	XYXY any
	Conf any
	Cls  any
}

// ObjectBox: одна рамка в перечисляемом представлении.
// Поля проверяются в порядке объявления, первое подходящее выигрывает.
type ObjectBox struct {
	XYXY  any
	BBox  any
	Data  any
	Elems []any // собственные элементы объекта, если он итерируемый

	Conf       any
	Confidence any

	Cls     any
	ClassID any
}

// RawResult: сырой результат детектора для одного изображения.
// Живёт только в рамках одного вызова, только для чтения.
type RawResult struct {
	Names   map[int]string
	Columns *Columns
	Objects []ObjectBox
}

// Shape выбирает вариант представления результата.
func (r RawResult) Shape() ResultShape {
	if r.Columns != nil && r.Columns.XYXY != nil {
		return ShapeColumnar
	}
	if len(r.Objects) > 0 {
		return ShapePerObject
	}
	return ShapeNone
}
