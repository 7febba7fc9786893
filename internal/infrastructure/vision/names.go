package vision

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// cocoNames: классы COCO, на которых обучены стандартные веса YOLOv8.
var cocoNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

// LoadNames читает имена классов из файла (по одному на строку).
// Для пустого пути возвращаются классы COCO.
func LoadNames(path string) (map[int]string, error) {
	if path == "" {
		return namesFromList(cocoNames), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open names file: %w", err)
	}
	defer f.Close()

	var list []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		list = append(list, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read names file: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("names file %s is empty", path)
	}
	return namesFromList(list), nil
}

func namesFromList(list []string) map[int]string {
	names := make(map[int]string, len(list))
	for i, n := range list {
		names[i] = n
	}
	return names
}
